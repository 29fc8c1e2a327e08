// Package idgen generates the opaque, human-scannable identifiers used
// for orders and order lines: a short prefix plus a random suffix taken
// from a v4 UUID. Identifiers are never derived from row counts.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

const suffixLen = 8

// Prefixes in use.
const (
	OrderPrefix     = "OD"
	OrderLinePrefix = "OL"
)

// New returns prefix followed by the first 8 hex characters of a random
// UUID, uppercased (e.g. "OD3F9A21BC").
func New(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(raw[:suffixLen])
}

func NewOrderID() string {
	return New(OrderPrefix)
}

func NewOrderLineID() string {
	return New(OrderLinePrefix)
}
