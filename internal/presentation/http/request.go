package httppresentation

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

// Upstream authentication sets these; the service only reads them.
const (
	headerStoreID    = "X-Store-ID"
	headerActorScope = "X-Actor-Scope"
	headerUserID     = "X-User-ID"
)

const dateOnly = "2006-01-02"

// actorFromRequest reads the caller identity. A superadmin scope header wins over a store id,
// which wins over a user id.
func actorFromRequest(r *http.Request) (actor.Context, error) {
	scope := strings.ToLower(strings.TrimSpace(r.Header.Get(headerActorScope)))
	storeID := strings.TrimSpace(r.Header.Get(headerStoreID))
	userID := strings.TrimSpace(r.Header.Get(headerUserID))

	var act actor.Context
	switch {
	case scope == string(actor.ScopeSuperadmin):
		act = actor.Superadmin()
	case scope != "" && scope != string(actor.ScopeStore) && scope != string(actor.ScopeCustomer):
		return actor.Context{}, apperr.Unauthorized("unknown actor scope " + strconv.Quote(scope))
	case storeID != "" && scope != string(actor.ScopeCustomer):
		act = actor.Store(storeID)
	case userID != "":
		act = actor.Customer(userID)
	default:
		return actor.Context{}, apperr.Unauthorized("actor context is required")
	}
	if err := act.Validate(); err != nil {
		return actor.Context{}, apperr.Wrap(apperr.KindUnauthorized, "invalid actor context", err)
	}
	return act, nil
}

// userFromRequest reads the caller's user id from the actor headers only.
func userFromRequest(r *http.Request) (string, error) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		return "", apperr.Unauthorized("user context is required")
	}
	return userID, nil
}

func actorLabel(r *http.Request) string {
	act, err := actorFromRequest(r)
	if err != nil {
		return ""
	}
	switch {
	case act.IsStore():
		return "store:" + act.StoreID
	case act.IsCustomer():
		return "customer:" + act.UserID
	default:
		return string(act.Scope)
	}
}

// filterFromQuery parses status, fromDate, toDate, page, limit and sort. A date-only toDate
// covers the whole day.
func filterFromQuery(r *http.Request) (storeview.Filter, error) {
	q := r.URL.Query()
	f := storeview.Filter{Status: strings.TrimSpace(q.Get("status"))}

	var err error
	if v := q.Get("fromDate"); v != "" {
		if f.From, _, err = parseDate(v); err != nil {
			return storeview.Filter{}, apperr.Wrap(apperr.KindValidation, "invalid fromDate", err)
		}
	}
	if v := q.Get("toDate"); v != "" {
		to, dayOnly, err := parseDate(v)
		if err != nil {
			return storeview.Filter{}, apperr.Wrap(apperr.KindValidation, "invalid toDate", err)
		}
		if dayOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = to
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return storeview.Filter{}, apperr.Validation("toDate is before fromDate")
	}
	if f.Page, err = positiveInt(q.Get("page")); err != nil {
		return storeview.Filter{}, apperr.Wrap(apperr.KindValidation, "invalid page", err)
	}
	if f.Limit, err = positiveInt(q.Get("limit")); err != nil {
		return storeview.Filter{}, apperr.Wrap(apperr.KindValidation, "invalid limit", err)
	}
	switch strings.ToLower(q.Get("sort")) {
	case "", "desc":
	case "asc":
		f.Ascending = true
	default:
		return storeview.Filter{}, apperr.Validation("sort must be asc or desc")
	}
	return f.Normalize(), nil
}

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func positiveInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, apperr.Validation("must be a positive integer")
	}
	return n, nil
}
