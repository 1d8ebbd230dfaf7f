package autosave

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type skillsSection struct {
	Skills []string `json:"skills"`
}

func TestCapture_Equal(t *testing.T) {
	tests := []struct {
		name string
		a    any
		b    any
		want bool
	}{
		{"same struct values", skillsSection{Skills: []string{"go"}}, skillsSection{Skills: []string{"go"}}, true},
		{"different slices", skillsSection{Skills: []string{"go"}}, skillsSection{Skills: []string{"go", "sql"}}, false},
		{"slice order matters", []string{"a", "b"}, []string{"b", "a"}, false},
		{"struct against map", skillsSection{Skills: []string{"go"}}, map[string]any{"skills": []string{"go"}}, true},
		{"map key order ignored", map[string]int{"a": 1, "b": 2}, map[string]int{"b": 2, "a": 1}, true},
		{"nil against empty slice", skillsSection{}, skillsSection{Skills: []string{}}, false},
		{"large integers keep precision", int64(9007199254740993), int64(9007199254740992), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ca, err := capture[any](tt.a)
			require.NoError(t, err)
			cb, err := capture[any](tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ca.equal(cb))
		})
	}
}

func TestCapture_NotComparable(t *testing.T) {
	_, err := capture[any](func() {})
	assert.True(t, errors.Is(err, ErrNotComparable))

	_, err = capture(math.NaN())
	assert.True(t, errors.Is(err, ErrNotComparable))
}

func TestCapture_IsolatesCaller(t *testing.T) {
	src := skillsSection{Skills: []string{"go", "sql"}}

	c, err := capture(src)
	require.NoError(t, err)

	src.Skills[0] = "rust"
	assert.Equal(t, []string{"go", "sql"}, c.value.Skills)
}

func TestCapture_Cycle(t *testing.T) {
	type node struct {
		Next *node `json:"next"`
	}
	n := &node{}
	n.Next = n

	_, err := capture(n)
	assert.True(t, errors.Is(err, ErrNotComparable))
}
