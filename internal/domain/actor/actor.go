// Package actor models the caller identity that upstream authentication attaches to each request.
// The core never derives it; every operation that needs it takes a Context argument.
package actor

import "errors"

var ErrInvalid = errors.New("actor: invalid context")

type Scope string

const (
	// ScopeStore is a store operator limited to the slice of shared data owned by StoreID.
	ScopeStore Scope = "store"
	// ScopeSuperadmin sees and mutates everything.
	ScopeSuperadmin Scope = "superadmin"
	// ScopeCustomer is a shopper acting on their own orders.
	ScopeCustomer Scope = "customer"
)

type Context struct {
	Scope   Scope
	StoreID string
	UserID  string
}

func Store(storeID string) Context {
	return Context{Scope: ScopeStore, StoreID: storeID}
}

func Superadmin() Context {
	return Context{Scope: ScopeSuperadmin}
}

func Customer(userID string) Context {
	return Context{Scope: ScopeCustomer, UserID: userID}
}

func (c Context) IsSuperadmin() bool { return c.Scope == ScopeSuperadmin }

func (c Context) IsStore() bool { return c.Scope == ScopeStore }

func (c Context) IsCustomer() bool { return c.Scope == ScopeCustomer }

// Validate rejects contexts whose scope is unknown or missing the identity it needs.
func (c Context) Validate() error {
	switch c.Scope {
	case ScopeSuperadmin:
		return nil
	case ScopeStore:
		if c.StoreID == "" {
			return errors.Join(ErrInvalid, errors.New("store scope requires a store id"))
		}
		return nil
	case ScopeCustomer:
		if c.UserID == "" {
			return errors.Join(ErrInvalid, errors.New("customer scope requires a user id"))
		}
		return nil
	default:
		return ErrInvalid
	}
}

// Owns reports whether the actor may act on data belonging to storeID.
func (c Context) Owns(storeID string) bool {
	if c.IsSuperadmin() {
		return true
	}
	return c.IsStore() && c.StoreID != "" && c.StoreID == storeID
}
