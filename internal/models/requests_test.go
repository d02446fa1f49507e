package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationRequest(t *testing.T) {
	tests := []struct {
		name           string
		input          PaginationRequest
		expectedPage   int
		expectedSize   int
		expectedOffset int
	}{
		{
			name: "Default values",
			input: PaginationRequest{
				Page:     0,
				PageSize: 0,
			},
			expectedPage:   1,
			expectedSize:   10,
			expectedOffset: 0,
		},
		{
			name: "Valid values",
			input: PaginationRequest{
				Page:     2,
				PageSize: 20,
			},
			expectedPage:   2,
			expectedSize:   20,
			expectedOffset: 20,
		},
		{
			name: "Negative values",
			input: PaginationRequest{
				Page:     -1,
				PageSize: -5,
			},
			expectedPage:   1,
			expectedSize:   10,
			expectedOffset: 0,
		},
		{
			name: "Exceeding maximum page size",
			input: PaginationRequest{
				Page:     3,
				PageSize: 200,
			},
			expectedPage:   3,
			expectedSize:   100,
			expectedOffset: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set defaults
			tt.input.SetDefaults()

			// Check values
			assert.Equal(t, tt.expectedPage, tt.input.Page)
			assert.Equal(t, tt.expectedSize, tt.input.PageSize)
			assert.Equal(t, tt.expectedOffset, tt.input.GetOffset())
		})
	}
}

func TestSortRequest(t *testing.T) {
	tests := []struct {
		name           string
		input          SortRequest
		defaultSortBy  string
		expectedSortBy string
		expectedOrder  string
	}{
		{
			name: "Default values",
			input: SortRequest{
				SortBy:    "",
				SortOrder: "",
			},
			defaultSortBy:  "id",
			expectedSortBy: "id",
			expectedOrder:  "asc",
		},
		{
			name: "Provided values",
			input: SortRequest{
				SortBy:    "name",
				SortOrder: "desc",
			},
			defaultSortBy:  "id",
			expectedSortBy: "name",
			expectedOrder:  "desc",
		},
		{
			name: "Empty order",
			input: SortRequest{
				SortBy:    "created_at",
				SortOrder: "",
			},
			defaultSortBy:  "id",
			expectedSortBy: "created_at",
			expectedOrder:  "asc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set defaults
			tt.input.SetDefaults(tt.defaultSortBy)

			// Check values
			assert.Equal(t, tt.expectedSortBy, tt.input.SortBy)
			assert.Equal(t, tt.expectedOrder, tt.input.SortOrder)
		})
	}
}
