package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/marketplace/app/internal/application"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/review"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	reviewService       = "review-service"
	useCaseReviewCreate = "review.create"
)

var ErrRepository = errors.New("review: repository failure")

type CreateReviewInput struct {
	UserID    string
	ProductID string
	Rating    int
	Comment   string
}

type Result struct {
	Review           *domain.Review
	VerifiedPurchase bool
}

type Service struct {
	reviews  domain.Repository
	products product.Repository
	orders   order.Repository
	ids      application.IDGenerator
	in       *application.Instrumentation
}

func NewService(reviews domain.Repository, products product.Repository, orders order.Repository, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		reviews:  reviews,
		products: products,
		orders:   orders,
		ids:      ids,
		in:       application.NewInstrumentation(tel, reviewService),
	}
}

// Create records a review. A user may review a product once, whether or not they bought it;
// the verified-purchase flag is derived, never stored.
func (s *Service) Create(ctx context.Context, cmd CreateReviewInput) (_ *Result, err error) {
	ctx, run := s.in.Start(ctx, useCaseReviewCreate, "CreateReview",
		attribute.String("product.id", cmd.ProductID),
		attribute.String("user.id", cmd.UserID),
	)
	defer func() { run.End(err) }()

	rv, err := domain.New(s.ids.NewID(), cmd.ProductID, cmd.UserID, cmd.Rating, cmd.Comment)
	if err != nil {
		run.Fail("INPUT_INVALID")
		return nil, apperr.Wrap(apperr.KindValidation, "invalid review", err)
	}
	if _, err := s.products.Get(ctx, cmd.ProductID); err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		if errors.Is(err, product.ErrNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("product %s not found", cmd.ProductID), err)
		}
		return nil, wrapRepositoryError(err)
	}
	if err := s.reviews.Insert(ctx, rv); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	verified, lookupErr := s.orders.HasPurchased(ctx, cmd.UserID, cmd.ProductID)
	if lookupErr != nil {
		run.Status("VERIFIED_UNKNOWN")
		run.Log.Warn("purchase_lookup_failed",
			observability.F("review_id", rv.ID),
			observability.Err(lookupErr),
		)
	}
	run.Field(observability.F("review_id", rv.ID), observability.F("verified_purchase", verified))
	return &Result{Review: rv, VerifiedPurchase: verified}, nil
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrConflict) {
		return apperr.Wrap(apperr.KindConflict, "product already reviewed by this user", err)
	}
	return apperr.Wrap(apperr.KindInternal, "review", fmt.Errorf("%w: %w", ErrRepository, err))
}
