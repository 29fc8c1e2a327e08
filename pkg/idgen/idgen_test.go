package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^OD[0-9A-F]{8}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, NewOrderID())
	}
	assert.Regexp(t, regexp.MustCompile(`^OL[0-9A-F]{8}$`), NewOrderLineID())
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New(OrderPrefix)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
