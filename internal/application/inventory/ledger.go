package inventory

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/marketplace/app/internal/application"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService  = "inventory-service"
	useCaseDecrement  = "inventory.decrement"
	useCaseRestore    = "inventory.restore"
	useCaseValidate   = "inventory.validate_order"
	useCaseCheckStock = "inventory.check_stock"
)

// Line is one requested (product, quantity) pair.
type Line struct {
	ProductID string
	Quantity  int
}

// Validation is the result of a successful ValidateForOrder: the products as read, keyed by id,
// so callers can snapshot price and store without reading again.
type Validation struct {
	Products map[string]*product.Product
}

// Ledger owns product stock. Every decrement is a single conditional update at the repository,
// so stock can never go negative regardless of how many orders race for it.
type Ledger struct {
	products product.Repository
	in       *application.Instrumentation
}

func NewLedger(products product.Repository, tel observability.Observability) *Ledger {
	return &Ledger{
		products: products,
		in:       application.NewInstrumentation(tel, inventoryService),
	}
}

// CheckStock reports whether qty units of productID are available. It does not reserve anything.
func (l *Ledger) CheckStock(ctx context.Context, productID string, qty int) (_ bool, err error) {
	ctx, run := l.in.Start(ctx, useCaseCheckStock, "CheckStock",
		attribute.String("product.id", productID),
		attribute.Int("quantity", qty),
	)
	defer func() { run.End(err) }()

	if qty <= 0 {
		run.Fail("QUANTITY_INVALID")
		return false, apperr.Validation("quantity must be greater than zero")
	}
	p, err := l.products.Get(ctx, productID)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return false, wrapRepositoryError(productID, err)
	}
	return p.Stock >= qty, nil
}

// Decrement takes qty units from productID if and only if enough stock remains.
func (l *Ledger) Decrement(ctx context.Context, productID string, qty int) (_ int, err error) {
	ctx, run := l.in.Start(ctx, useCaseDecrement, "DecrementStock",
		attribute.String("product.id", productID),
		attribute.Int("quantity", qty),
	)
	defer func() { run.End(err) }()
	run.Field(observability.ProductID(productID), observability.F("quantity", qty))

	if qty <= 0 {
		run.Fail("QUANTITY_INVALID")
		return 0, apperr.Validation("quantity must be greater than zero")
	}
	stock, err := l.products.DecrementStock(ctx, productID, qty)
	if err != nil {
		run.Fail("DECREMENT_FAILED")
		return 0, wrapRepositoryError(productID, err)
	}
	run.Field(observability.F("stock", stock))
	run.Span.SetAttributes(attribute.Int("product.stock", stock))
	return stock, nil
}

// Restore adds qty units back. It is only used to compensate an earlier Decrement.
func (l *Ledger) Restore(ctx context.Context, productID string, qty int) (_ int, err error) {
	ctx, run := l.in.Start(ctx, useCaseRestore, "RestoreStock",
		attribute.String("product.id", productID),
		attribute.Int("quantity", qty),
	)
	defer func() { run.End(err) }()
	run.Field(observability.ProductID(productID), observability.F("quantity", qty))

	if qty <= 0 {
		run.Fail("QUANTITY_INVALID")
		return 0, apperr.Validation("quantity must be greater than zero")
	}
	stock, err := l.products.IncrementStock(ctx, productID, qty)
	if err != nil {
		run.Fail("RESTORE_FAILED")
		return 0, wrapRepositoryError(productID, err)
	}
	run.Field(observability.F("stock", stock))
	return stock, nil
}

// ValidateForOrder checks every line before anything is decremented and fails on the first
// line, in request order, that cannot be served. Lines naming the same product are checked
// against their combined quantity.
func (l *Ledger) ValidateForOrder(ctx context.Context, lines []Line) (_ *Validation, err error) {
	ctx, run := l.in.Start(ctx, useCaseValidate, "ValidateForOrder",
		attribute.Int("order.lines", len(lines)),
	)
	defer func() { run.End(err) }()

	if len(lines) == 0 {
		run.Fail("NO_ITEMS")
		return nil, apperr.Validation("at least one item is required")
	}
	ids := make([]string, 0, len(lines))
	wanted := make(map[string]int, len(lines))
	for _, ln := range lines {
		if ln.ProductID == "" {
			run.Fail("PRODUCT_ID_REQUIRED")
			return nil, apperr.Validation("product id is required")
		}
		if ln.Quantity <= 0 {
			run.Fail("QUANTITY_INVALID")
			return nil, apperr.Validation(fmt.Sprintf("quantity for product %s must be greater than zero", ln.ProductID))
		}
		if _, seen := wanted[ln.ProductID]; !seen {
			ids = append(ids, ln.ProductID)
		}
		wanted[ln.ProductID] += ln.Quantity
	}

	products, err := l.products.GetMany(ctx, ids)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, wrapRepositoryError("", err)
	}

	for _, ln := range lines {
		p, ok := products[ln.ProductID]
		if !ok {
			run.Fail("PRODUCT_NOT_FOUND")
			return nil, wrapRepositoryError(ln.ProductID, product.ErrNotFound)
		}
		if !p.Active {
			run.Fail("PRODUCT_INACTIVE")
			return nil, apperr.Wrap(apperr.KindValidation, fmt.Sprintf("product %s is not available", ln.ProductID), product.ErrInactive)
		}
		if p.Stock < wanted[ln.ProductID] {
			run.Fail("INSUFFICIENT_STOCK")
			run.Field(observability.ProductID(ln.ProductID), observability.F("available", p.Stock))
			return nil, wrapRepositoryError(ln.ProductID, product.ErrInsufficientStock)
		}
	}
	return &Validation{Products: products}, nil
}
