package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/review"
)

const reviewColumns = `id, product_id, user_id, rating, comment, created_at`

type ReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Insert relies on UNIQUE (user_id, product_id) for the one-review-per-user rule.
func (r *ReviewRepository) Insert(ctx context.Context, rv *domain.Review) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment, rv.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("review repository: insert: %w", err)
	}
	return nil
}

func (r *ReviewRepository) ListByProducts(ctx context.Context, productIDs []string) ([]*domain.Review, error) {
	if len(productIDs) == 0 {
		return []*domain.Review{}, nil
	}
	return r.list(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE product_id = ANY($1)
		ORDER BY created_at DESC, id DESC`, productIDs)
}

func (r *ReviewRepository) ListAll(ctx context.Context) ([]*domain.Review, error) {
	return r.list(ctx, `SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC, id DESC`)
}

func (r *ReviewRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.Review, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("review repository: list: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("review repository: scan: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var (
		rv     domain.Review
		rating int16
	)
	if err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rating, &rv.Comment, &rv.CreatedAt); err != nil {
		return nil, err
	}
	rv.Rating = int(rating)
	return &rv, nil
}
