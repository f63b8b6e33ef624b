package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/id"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

func TestCatalogAddProduct(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(memory.NewProductRepository(), id.New(), nil)

	p, err := c.AddProduct(ctx, actor.Store("A"), AddProductInput{Name: "mug", Price: 900, Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, "A", p.StoreID)
	assert.True(t, p.Active)

	_, err = c.AddProduct(ctx, actor.Store("A"), AddProductInput{StoreID: "B", Name: "mug", Price: 900})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = c.AddProduct(ctx, actor.Superadmin(), AddProductInput{Name: "mug", Price: 900})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	p, err = c.AddProduct(ctx, actor.Superadmin(), AddProductInput{StoreID: "B", Name: "mug", Price: 900})
	require.NoError(t, err)
	assert.Equal(t, "B", p.StoreID)

	_, err = c.AddProduct(ctx, actor.Customer("u1"), AddProductInput{Name: "mug", Price: 900})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = c.AddProduct(ctx, actor.Store("A"), AddProductInput{Name: "mug", Price: -1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCatalogUpdateProductOwnership(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository()
	seedProduct(t, repo, "p1", "A", 10, 5)
	c := NewCatalog(repo, id.New(), nil)

	stock := 12
	_, err := c.UpdateProduct(ctx, actor.Store("B"), "p1", product.Patch{Stock: &stock})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	p, err := c.UpdateProduct(ctx, actor.Store("A"), "p1", product.Patch{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 12, p.Stock)

	stored, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 12, stored.Stock)

	_, err = c.UpdateProduct(ctx, actor.Superadmin(), "missing", product.Patch{Stock: &stock})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// racingRepo lets an order decrement land between UpdateProduct's read and its write.
type racingRepo struct {
	*memory.ProductRepository
	once sync.Once
	qty  int
}

func (r *racingRepo) Get(ctx context.Context, id string) (*product.Product, error) {
	p, err := r.ProductRepository.Get(ctx, id)
	r.once.Do(func() {
		_, _ = r.ProductRepository.DecrementStock(ctx, id, r.qty)
	})
	return p, err
}

func TestCatalogUpdateKeepsConcurrentStockChanges(t *testing.T) {
	ctx := context.Background()
	repo := &racingRepo{ProductRepository: memory.NewProductRepository(), qty: 3}
	seedProduct(t, repo.ProductRepository, "p1", "A", 10, 5)
	c := NewCatalog(repo, id.New(), nil)

	name := "renamed"
	p, err := c.UpdateProduct(ctx, actor.Store("A"), "p1", product.Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", p.Name)
	assert.Equal(t, 2, p.Stock)

	stored, err := repo.ProductRepository.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, 2, stored.Stock)
}

func TestCatalogStockCorrectionIsAbsolute(t *testing.T) {
	ctx := context.Background()
	repo := &racingRepo{ProductRepository: memory.NewProductRepository(), qty: 3}
	seedProduct(t, repo.ProductRepository, "p1", "A", 10, 5)
	c := NewCatalog(repo, id.New(), nil)

	stock := 9
	p, err := c.UpdateProduct(ctx, actor.Store("A"), "p1", product.Patch{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 9, p.Stock)

	negative := -1
	_, err = c.UpdateProduct(ctx, actor.Store("A"), "p1", product.Patch{Stock: &negative})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCatalogLowStock(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository()
	seedProduct(t, repo, "p1", "A", 10, 4)
	seedProduct(t, repo, "p2", "A", 10, 1)
	seedProduct(t, repo, "p3", "A", 10, 50)
	seedProduct(t, repo, "p4", "B", 10, 0)
	c := NewCatalog(repo, id.New(), nil)

	low, err := c.LowStock(ctx, "A", 5)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "p2", low[0].ID)
	assert.Equal(t, "p1", low[1].ID)

	_, err = c.LowStock(ctx, "", 5)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
