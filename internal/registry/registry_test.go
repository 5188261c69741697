package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Registry_Lookup(t *testing.T) {
	reg := New(map[string]Product{
		"cemyz": {Name: "Gumhook Pro", ID: 1},
		"abcde": {Name: "Gumhook Lite"},
	})

	p, ok := reg.Lookup("cemyz")
	assert.True(t, ok)
	assert.Equal(t, "cemyz", p.Key)
	assert.Equal(t, "Gumhook Pro", p.Name)
	assert.Equal(t, int64(1), p.ID)

	_, ok = reg.Lookup("nonexistent")
	assert.False(t, ok)
}

func Test_Registry_Keys_Deterministic(t *testing.T) {
	reg := New(map[string]Product{
		"zzz": {Name: "Z"},
		"aaa": {Name: "A"},
		"mmm": {Name: "M"},
	})

	// Iteration order must be stable regardless of map ordering.
	assert.Equal(t, []string{"aaa", "mmm", "zzz"}, reg.Keys())
	assert.Equal(t, 3, reg.Len())
}
