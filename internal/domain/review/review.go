package review

import (
	"context"
	"errors"
	"strings"
	"time"
)

const maxCommentRunes = 2000

var (
	ErrNotFound        = errors.New("review: not found")
	ErrConflict        = errors.New("review: user already reviewed this product")
	ErrInvalidRating   = errors.New("review: rating must be between 1 and 5")
	ErrUserRequired    = errors.New("review: user id is required")
	ErrProductRequired = errors.New("review: product id is required")
	ErrCommentTooLong  = errors.New("review: comment is too long")
)

type Review struct {
	ID        string
	ProductID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func New(id, productID, userID string, rating int, comment string) (*Review, error) {
	if productID == "" {
		return nil, ErrProductRequired
	}
	if userID == "" {
		return nil, ErrUserRequired
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) > maxCommentRunes {
		return nil, ErrCommentTooLong
	}
	return &Review{
		ID:        id,
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (r *Review) Clone() *Review {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

type Repository interface {
	// Insert fails with ErrConflict when the user already reviewed the product.
	Insert(ctx context.Context, r *Review) error
	// ListByProducts returns reviews of any of productIDs, newest first.
	ListByProducts(ctx context.Context, productIDs []string) ([]*Review, error)
	// ListAll returns every review, newest first.
	ListAll(ctx context.Context) ([]*Review, error)
}
