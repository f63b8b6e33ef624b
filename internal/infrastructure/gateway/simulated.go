// Package gateway holds payment provider adapters.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zhima-Mochi/marketplace/app/internal/application/payment"
)

const (
	statusSubmittedForSettlement = "submitted_for_settlement"
	statusProcessorDeclined      = "processor_declined"
	reasonDeclined               = "Processor declined the transaction"
)

type Options struct {
	MerchantID  string
	SuccessRate float64
	// Latency is slept before each sale to mimic a provider round trip.
	Latency time.Duration
}

// Simulated approves a sale with probability SuccessRate. It never reaches the network.
type Simulated struct {
	merchantID  string
	successRate float64
	latency     time.Duration

	mu     sync.Mutex
	random *rand.Rand
}

var _ payment.Gateway = (*Simulated)(nil)

func NewSimulated(opts Options) *Simulated {
	rate := opts.SuccessRate
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &Simulated{
		merchantID:  opts.MerchantID,
		successRate: rate,
		latency:     opts.Latency,
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Simulated) GenerateClientToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("sandbox_%s_%s", g.merchantID, uuid.NewString()), nil
}

func (g *Simulated) Sale(ctx context.Context, req payment.SaleRequest) (*payment.SaleResult, error) {
	if req.Nonce == "" {
		return nil, errors.New("gateway: payment method nonce is required")
	}
	if req.Amount <= 0 {
		return nil, errors.New("gateway: amount must be greater than zero")
	}
	if g.latency > 0 {
		t := time.NewTimer(g.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	g.mu.Lock()
	approved := g.random.Float64() < g.successRate
	g.mu.Unlock()

	if !approved {
		return &payment.SaleResult{
			Success:       false,
			Status:        statusProcessorDeclined,
			Amount:        req.Amount,
			FailureReason: reasonDeclined,
		}, nil
	}
	return &payment.SaleResult{
		Success:       true,
		TransactionID: "txn_" + uuid.NewString()[:8],
		Status:        statusSubmittedForSettlement,
		Amount:        req.Amount,
	}, nil
}

func (g *Simulated) SuccessRate() float64 { return g.successRate }
