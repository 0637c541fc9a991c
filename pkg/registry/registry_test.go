package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	ID string
}

func TestBaseRegistry_Register(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"register valid item", "a", false},
		{"register item with empty name", "", true},
		{"register duplicate item", "a", true},
	}

	r := NewBaseRegistry[testItem]()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.key, testItem{ID: tt.key})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, 1, r.Count())
}

func TestBaseRegistry_Order(t *testing.T) {
	r := NewBaseRegistry[testItem]()
	for _, k := range []string{"load", "analyze", "write"} {
		require.NoError(t, r.Register(k, testItem{ID: k}))
	}

	assert.Equal(t, []string{"load", "analyze", "write"}, r.Names())
	assert.Equal(t, []testItem{{"load"}, {"analyze"}, {"write"}}, r.List())

	got := r.GetMany([]string{"write", "missing", "load"})
	assert.Equal(t, []testItem{{"write"}, {"load"}}, got)

	item, ok := r.Get("analyze")
	assert.True(t, ok)
	assert.Equal(t, "analyze", item.ID)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}
