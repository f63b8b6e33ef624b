package inventory

import (
	"context"
	"sort"

	"github.com/Zhima-Mochi/marketplace/app/internal/application"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseAddProduct    = "catalog.add_product"
	useCaseUpdateProduct = "catalog.update_product"
	useCaseLowStock      = "catalog.low_stock"
)

type AddProductInput struct {
	// StoreID is required for superadmins and must match the actor's store otherwise.
	StoreID string
	Name    string
	Price   int64
	Stock   int
}

// Catalog lets store operators maintain the products they own.
type Catalog struct {
	products product.Repository
	ids      application.IDGenerator
	in       *application.Instrumentation
}

func NewCatalog(products product.Repository, ids application.IDGenerator, tel observability.Observability) *Catalog {
	return &Catalog{
		products: products,
		ids:      ids,
		in:       application.NewInstrumentation(tel, inventoryService),
	}
}

func (c *Catalog) AddProduct(ctx context.Context, act actor.Context, input AddProductInput) (_ *product.Product, err error) {
	ctx, run := c.in.Start(ctx, useCaseAddProduct, "AddProduct",
		attribute.String("actor.scope", string(act.Scope)),
		attribute.String("product.store_id", input.StoreID),
	)
	defer func() { run.End(err) }()

	storeID, err := owningStore(act, input.StoreID)
	if err != nil {
		run.Fail("ACTOR_REJECTED")
		return nil, err
	}

	p, err := product.New(c.ids.NewID(), storeID, input.Name, input.Price, input.Stock)
	if err != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, wrapRepositoryError("", err)
	}
	if err := c.products.Insert(ctx, p); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(p.ID, err)
	}
	run.Field(observability.ProductID(p.ID), observability.StoreID(storeID))
	return p, nil
}

// UpdateProduct applies patch if the actor owns the product. Detail fields and stock are
// written separately so an edit that leaves stock alone never overwrites it. Stock set here
// is an absolute correction by the operator; order flows go through the Ledger instead.
func (c *Catalog) UpdateProduct(ctx context.Context, act actor.Context, productID string, patch product.Patch) (_ *product.Product, err error) {
	ctx, run := c.in.Start(ctx, useCaseUpdateProduct, "UpdateProduct",
		attribute.String("actor.scope", string(act.Scope)),
		attribute.String("product.id", productID),
	)
	defer func() { run.End(err) }()

	if err := act.Validate(); err != nil {
		run.Fail("ACTOR_INVALID")
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid actor", err)
	}
	p, err := c.products.Get(ctx, productID)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, wrapRepositoryError(productID, err)
	}
	if !act.Owns(p.StoreID) {
		run.Fail("NOT_OWNER")
		return nil, apperr.Unauthorized("product belongs to another store")
	}
	if err := p.Apply(patch); err != nil {
		run.Fail("PATCH_INVALID")
		return nil, wrapRepositoryError(productID, err)
	}
	if patch.Name != nil || patch.Price != nil || patch.Active != nil {
		if err := c.products.UpdateDetails(ctx, p); err != nil {
			run.Fail("REPO_UPDATE_FAILED")
			return nil, wrapRepositoryError(productID, err)
		}
	}
	if patch.Stock != nil {
		if _, err := c.products.SetStock(ctx, productID, *patch.Stock); err != nil {
			run.Fail("REPO_SET_STOCK_FAILED")
			return nil, wrapRepositoryError(productID, err)
		}
	}
	// p.Stock is stale unless the patch set it; order flows may have moved it since Get.
	fresh, err := c.products.Get(ctx, productID)
	if err != nil {
		run.Fail("PRODUCT_RELOAD_FAILED")
		return nil, wrapRepositoryError(productID, err)
	}
	return fresh, nil
}

// LowStock lists the store's products whose stock is at or below threshold, lowest first.
func (c *Catalog) LowStock(ctx context.Context, storeID string, threshold int) (_ []*product.Product, err error) {
	ctx, run := c.in.Start(ctx, useCaseLowStock, "LowStock",
		attribute.String("store.id", storeID),
		attribute.Int("threshold", threshold),
	)
	defer func() { run.End(err) }()

	var all []*product.Product
	if storeID == "" {
		run.Fail("STORE_REQUIRED")
		return nil, apperr.Validation("store id is required")
	}
	all, err = c.products.ListByStore(ctx, storeID)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError("", err)
	}
	low := make([]*product.Product, 0)
	for _, p := range all {
		if p.Stock <= threshold {
			low = append(low, p)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })
	return low, nil
}

func owningStore(act actor.Context, requested string) (string, error) {
	if err := act.Validate(); err != nil {
		return "", apperr.Wrap(apperr.KindUnauthorized, "invalid actor", err)
	}
	switch {
	case act.IsSuperadmin():
		if requested == "" {
			return "", apperr.Validation("store id is required")
		}
		return requested, nil
	case act.IsStore():
		if requested != "" && requested != act.StoreID {
			return "", apperr.Unauthorized("cannot create products for another store")
		}
		return act.StoreID, nil
	default:
		return "", apperr.Unauthorized("only store operators can manage products")
	}
}
