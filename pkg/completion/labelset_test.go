package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelSet(t *testing.T) {
	s := newLabelSet("qui", "", "quick")

	assert.False(t, s.add("qui"))
	assert.False(t, s.add("quick"))
	assert.True(t, s.add(""), "empty exclusions are ignored")
	assert.True(t, s.add("quicksand"))
	assert.False(t, s.add("quicksand"))
}
