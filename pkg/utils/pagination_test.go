package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageInfo(t *testing.T) {
	testCases := []struct {
		name  string
		page  int
		limit int
		total int64
		want  PageInfo
	}{
		{"first of two", 1, 10, 15, PageInfo{Page: 1, Total: 15, TotalPages: 2, HasNext: true, HasPrev: false}},
		{"last page", 2, 10, 15, PageInfo{Page: 2, Total: 15, TotalPages: 2, HasNext: false, HasPrev: true}},
		{"beyond last", 3, 10, 15, PageInfo{Page: 3, Total: 15, TotalPages: 2, HasNext: false, HasPrev: true}},
		{"exact multiple", 1, 5, 10, PageInfo{Page: 1, Total: 10, TotalPages: 2, HasNext: true, HasPrev: false}},
		{"empty", 1, 10, 0, PageInfo{Page: 1, Total: 0, TotalPages: 0, HasNext: false, HasPrev: false}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewPageInfo(tc.page, tc.limit, tc.total))
		})
	}
}

func TestGetPageOffset(t *testing.T) {
	p := Pagination{Page: 0, Limit: 500}
	offset, limit := p.GetPageOffset()

	assert.Equal(t, 0, offset)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, Offset(3, 10))
}
