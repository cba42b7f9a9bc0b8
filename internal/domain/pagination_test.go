package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(21, 2, 10)
	assert.Equal(t, int64(3), p.TotalPages)

	assert.Equal(t, int64(0), NewPagination(0, 1, 10).TotalPages)
	assert.Equal(t, int64(0), NewPagination(5, 1, 0).TotalPages)
}

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(DefaultPageSize), limit)

	_, limit = NormalizePage(1, 1000)
	assert.Equal(t, int64(MaxPageSize), limit)

	assert.Equal(t, 20, Offset(3, 10))
}
