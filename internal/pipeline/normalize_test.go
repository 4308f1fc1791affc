package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinesKeepsBlankLines(t *testing.T) {
	lines := Lines("  Work Order: 1  \r\n\r\n\tRemarks\rnext  ")
	assert.Equal(t, LineSequence{"Work Order: 1", "", "Remarks", "next"}, lines)
}

func TestLinesEmptyInput(t *testing.T) {
	assert.Empty(t, Lines(""))
	assert.Equal(t, LineSequence{"", ""}, Lines("\n"))
}

func TestNextNonBlank(t *testing.T) {
	lines := LineSequence{"a", "", "", "b"}

	j, ok := lines.NextNonBlank(1)
	assert.True(t, ok)
	assert.Equal(t, 3, j)

	_, ok = lines.NextNonBlank(4)
	assert.False(t, ok)
}
