package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordCounter(t *testing.T) {
	c := NewWordCounter()

	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 0, c.Count("   \n\t "))
	assert.Equal(t, 3, c.Count("grow your business"))
	assert.Equal(t, 5, c.Count("  spaced   out\nwords across  lines "))
	assert.Equal(t, 2000, c.Count(strings.Repeat("word ", 2000)))
}
