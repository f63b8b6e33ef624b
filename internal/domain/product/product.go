package product

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("product: not found")
	ErrConflict          = errors.New("product: already exists")
	ErrInvalidQuantity   = errors.New("product: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("product: insufficient stock")
	ErrInvalidPrice      = errors.New("product: price must be zero or greater")
	ErrInvalidStock      = errors.New("product: stock must be zero or greater")
	ErrStoreRequired     = errors.New("product: store id is required")
	ErrNameRequired      = errors.New("product: name is required")
	ErrInactive          = errors.New("product: inactive")
)

// Product is owned by exactly one store. Price is in minor units.
type Product struct {
	ID        string
	StoreID   string
	Name      string
	Price     int64
	Stock     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, storeID, name string, price int64, stock int) (*Product, error) {
	if strings.TrimSpace(storeID) == "" {
		return nil, ErrStoreRequired
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	now := time.Now().UTC()
	return &Product{
		ID:        id,
		StoreID:   storeID,
		Name:      strings.TrimSpace(name),
		Price:     price,
		Stock:     stock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Available reports whether qty units can be taken right now.
func (p *Product) Available(qty int) bool {
	return p.Active && qty > 0 && p.Stock >= qty
}

// Deduct is the in-memory form of the conditional decrement: it changes nothing unless Stock >= quantity.
// Callers must hold whatever lock makes the check and the write one step.
func (p *Product) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.touch()
	return nil
}

func (p *Product) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	p.touch()
	return nil
}

// Patch carries the operator-editable fields; nil means unchanged.
type Patch struct {
	Name   *string
	Price  *int64
	Stock  *int
	Active *bool
}

func (p *Product) Apply(patch Patch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return ErrNameRequired
		}
		p.Name = name
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return ErrInvalidPrice
		}
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return ErrInvalidStock
		}
		p.Stock = *patch.Stock
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	p.touch()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
