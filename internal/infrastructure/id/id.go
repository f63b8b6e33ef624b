// Package id issues identifiers backed by random UUIDs.
package id

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Generator struct{}

func New() Generator { return Generator{} }

func (Generator) NewID() string {
	return uuid.NewString()
}

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXXXX where the suffix is 8 upper-case hex digits of
// a fresh UUID. Storage enforces uniqueness; a collision surfaces as a conflict on insert.
func (Generator) NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "ORD-" + now.UTC().Format("20060102") + "-" + suffix
}
