package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOffsetPage(t *testing.T) {
	p := NewOffsetPage(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewOffsetPage(3, 10, 25)
	assert.False(t, p.HasNext)

	p = NewOffsetPage(1, 10, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}
