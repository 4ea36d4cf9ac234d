package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDSetKeepsInsertionOrder(t *testing.T) {
	s := newIDSet("b", "a")
	assert.True(t, s.Add("c"))
	assert.False(t, s.Add("a"))
	assert.Equal(t, []string{"b", "a", "c"}, s.IDs())

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, []string{"b", "c"}, s.IDs())
	assert.False(t, s.Has("a"))
	assert.Equal(t, 2, s.Len())
}

func TestIDSetIDsIsACopy(t *testing.T) {
	s := newIDSet("a")
	ids := s.IDs()
	ids[0] = "z"
	assert.Equal(t, []string{"a"}, s.IDs())
}
