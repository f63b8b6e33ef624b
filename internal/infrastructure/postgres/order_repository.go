package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
)

const orderColumns = `o.id, o.number, o.user_id, o.status, o.payment_status, o.total_amount,
	o.ship_name, o.ship_phone, o.ship_address, o.ship_city, o.ship_postal_code, o.ship_country,
	o.created_at, o.updated_at, o.reserving`

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

// Insert writes the order row and its lines in one transaction.
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("order repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, number, user_id, status, payment_status, total_amount,
			ship_name, ship_phone, ship_address, ship_city, ship_postal_code, ship_country,
			created_at, updated_at, reserving)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.Number, o.UserID, string(o.Status), string(o.PaymentStatus), o.TotalAmount,
		o.Shipping.Name, o.Shipping.Phone, o.Shipping.Address, o.Shipping.City, o.Shipping.PostalCode, o.Shipping.Country,
		o.CreatedAt, o.UpdatedAt, o.Reserving,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("order repository: insert: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, line, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, it.ProductID, it.Quantity, it.Price,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("order repository: insert items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("order repository: commit: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := r.query(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return orders[0], nil
}

func (r *OrderRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Order, error) {
	out := make(map[string]*domain.Order, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	orders, err := r.query(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		out[o.ID] = o
	}
	return out, nil
}

func (r *OrderRepository) Confirm(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET reserving = FALSE, updated_at = now()
		WHERE id = $1 AND reserving`, id)
	if err != nil {
		return fmt.Errorf("order repository: confirm: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.status(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidStateTransition
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("order repository: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, next domain.Status) (domain.Status, error) {
	from := statusStrings(domain.AllowedFrom(next))
	var previous string
	err := r.db.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, status, reserving FROM orders WHERE id = $1 FOR UPDATE
		)
		UPDATE orders o
		SET status = $2, updated_at = now()
		FROM prev
		WHERE o.id = prev.id AND NOT prev.reserving AND prev.status = ANY($3)
		RETURNING prev.status`,
		id, string(next), from,
	).Scan(&previous)
	if err == nil {
		return domain.Status(previous), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("order repository: update status: %w", err)
	}

	current, lookupErr := r.Get(ctx, id)
	if lookupErr != nil {
		return "", lookupErr
	}
	if current.Reserving {
		return current.Status, domain.ErrReserving
	}
	return current.Status, domain.ErrInvalidStateTransition
}

func (r *OrderRepository) MarkCanceled(ctx context.Context, id string) (*domain.Order, domain.Status, bool, error) {
	var previous string
	err := r.db.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, status, reserving FROM orders WHERE id = $1 FOR UPDATE
		)
		UPDATE orders o
		SET status = $2, updated_at = now()
		FROM prev
		WHERE o.id = prev.id AND NOT prev.reserving AND prev.status <> ALL($3)
		RETURNING prev.status`,
		id, string(domain.StatusCanceled),
		[]string{string(domain.StatusDelivered), string(domain.StatusCanceled)},
	).Scan(&previous)

	switch {
	case err == nil:
		o, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, domain.Status(previous), true, getErr
		}
		return o, domain.Status(previous), true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, "", false, fmt.Errorf("order repository: cancel: %w", err)
	}

	o, err := r.Get(ctx, id)
	if err != nil {
		return nil, "", false, err
	}
	switch {
	case o.Reserving:
		return o, o.Status, false, domain.ErrReserving
	case o.Status == domain.StatusCanceled:
		return o, o.Status, false, nil
	}
	return o, o.Status, false, domain.ErrInvalidStateTransition
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string) (*domain.Order, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2,
			status = CASE WHEN status = $3 THEN $4 ELSE status END,
			updated_at = now()
		WHERE id = $1 AND NOT reserving AND payment_status <> $2 AND status <> $5`,
		id, string(domain.PaymentPaid), string(domain.StatusPending), string(domain.StatusProcessing), string(domain.StatusCanceled),
	)
	if err != nil {
		return nil, fmt.Errorf("order repository: mark paid: %w", err)
	}

	o, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if tag.RowsAffected() == 1 {
		return o, nil
	}
	if o.Reserving {
		return o, domain.ErrReserving
	}
	if o.IsPaid() {
		return o, domain.ErrAlreadyPaid
	}
	return o, domain.ErrInvalidStateTransition
}

func (r *OrderRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Order, error) {
	var (
		where = []string{"NOT o.reserving"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.UserID != "" {
		where = append(where, "o.user_id = "+arg(f.UserID))
	}
	if f.Status != "" {
		where = append(where, "o.status = "+arg(string(f.Status)))
	}
	if !f.From.IsZero() {
		where = append(where, "o.created_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "o.created_at <= "+arg(f.To))
	}
	if f.StoreID != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.store_id = `+arg(f.StoreID)+`)`)
	}

	sql := `SELECT ` + orderColumns + ` FROM orders o WHERE ` + strings.Join(where, " AND ")
	sql += ` ORDER BY o.created_at DESC, o.id DESC`
	return r.query(ctx, sql, args...)
}

func (r *OrderRepository) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders o JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status <> $3 AND NOT o.reserving
		)`,
		userID, productID, string(domain.StatusCanceled),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("order repository: has purchased: %w", err)
	}
	return ok, nil
}

func (r *OrderRepository) status(ctx context.Context, id string) (domain.Status, error) {
	var s string
	err := r.db.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("order repository: status: %w", err)
	}
	return domain.Status(s), nil
}

// query loads order rows and then their lines in a second round trip.
func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("order repository: query: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	byID := make(map[string]*domain.Order)
	for rows.Next() {
		var (
			o             domain.Order
			status, payst string
		)
		if err := rows.Scan(&o.ID, &o.Number, &o.UserID, &status, &payst, &o.TotalAmount,
			&o.Shipping.Name, &o.Shipping.Phone, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode, &o.Shipping.Country,
			&o.CreatedAt, &o.UpdatedAt, &o.Reserving,
		); err != nil {
			return nil, fmt.Errorf("order repository: scan: %w", err)
		}
		o.Status = domain.Status(status)
		o.PaymentStatus = domain.PaymentStatus(payst)
		orders = append(orders, &o)
		byID[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order repository: rows: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	itemRows, err := r.db.Query(ctx, `
		SELECT order_id, product_id, quantity, price
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, line`, ids)
	if err != nil {
		return nil, fmt.Errorf("order repository: items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			it      domain.Item
		)
		if err := itemRows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("order repository: scan item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return orders, itemRows.Err()
}

func statusStrings(in []domain.Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
