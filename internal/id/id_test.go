package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsUniqueAndSorted(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 1000; i++ {
		s := New()
		assert.Len(t, s, 26)
		assert.False(t, seen[s], "duplicate id %s", s)
		seen[s] = true
		if prev != "" {
			assert.Less(t, prev, s)
		}
		prev = s
	}
}
