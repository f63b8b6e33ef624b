package storeview

import (
	"sort"
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Filter narrows a list view. Pagination applies after every other filter.
type Filter struct {
	Status    string
	From      time.Time
	To        time.Time
	Page      int
	Limit     int
	Ascending bool
}

// Normalize fills defaults and clamps Limit to MaxLimit.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

func (f Filter) inRange(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.After(f.To) {
		return false
	}
	return true
}

func (f Filter) orderFilter(storeID string, status order.Status) order.ListFilter {
	return order.ListFilter{
		StoreID: storeID,
		Status:  status,
		From:    f.From,
		To:      f.To,
	}
}

type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// Paginate cuts one page out of items after normalizing f.
func Paginate[T any](items []T, f Filter) Page[T] {
	f = f.Normalize()
	total := len(items)
	pages := (total + f.Limit - 1) / f.Limit
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return Page[T]{
		Items:      append([]T{}, items[start:end]...),
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: pages,
	}
}

func sortByTime[T any](items []T, at func(T) time.Time, ascending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if ascending {
			return at(items[i]).Before(at(items[j]))
		}
		return at(items[i]).After(at(items[j]))
	})
}
