package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/review"
)

type ReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]*domain.Review
	byPair  map[string]string
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{
		reviews: make(map[string]*domain.Review),
		byPair:  make(map[string]string),
	}
}

func (r *ReviewRepository) Insert(ctx context.Context, rv *domain.Review) error {
	_ = ctx
	if rv == nil || rv.ID == "" {
		return fmt.Errorf("review repository: id is required")
	}
	key := rv.UserID + "\x00" + rv.ProductID

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPair[key]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.reviews[rv.ID]; exists {
		return domain.ErrConflict
	}
	r.reviews[rv.ID] = rv.Clone()
	r.byPair[key] = rv.ID
	return nil
}

func (r *ReviewRepository) ListByProducts(ctx context.Context, productIDs []string) ([]*domain.Review, error) {
	_ = ctx
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Review, 0)
	for _, rv := range r.reviews {
		if _, ok := wanted[rv.ProductID]; ok {
			out = append(out, rv.Clone())
		}
	}
	sortReviews(out)
	return out, nil
}

func (r *ReviewRepository) ListAll(ctx context.Context) ([]*domain.Review, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Review, 0, len(r.reviews))
	for _, rv := range r.reviews {
		out = append(out, rv.Clone())
	}
	sortReviews(out)
	return out, nil
}

func sortReviews(rs []*domain.Review) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID > rs[j].ID
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}
