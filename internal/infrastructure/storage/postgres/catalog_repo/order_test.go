package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tannery/internal/core/apperror"
)

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		name    string
		orderBy string
		want    string
	}{
		{"empty defaults to name", "", "name ASC"},
		{"plain field", "code", "code ASC"},
		{"descending prefix", "-created_at", "created_at DESC"},
		{"explicit ascending prefix", "+name", "name ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOrderBy(productColumns, tt.orderBy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrderBy_RejectsUnknownField(t *testing.T) {
	inputs := []string{
		"password_hash",
		"name; DROP TABLE cat_products",
		"(SELECT password_hash FROM auth_users LIMIT 1)",
		"-",
		"name ASC, code",
	}

	for _, input := range inputs {
		_, err := parseOrderBy(productColumns, input)
		require.Error(t, err, "orderBy %q must be rejected", input)
		assert.True(t, apperror.IsValidation(err))
	}
}

func TestParseOrderBy_ShelfColumns(t *testing.T) {
	got, err := parseOrderBy(shelfColumns, "-section")
	require.NoError(t, err)
	assert.Equal(t, "section DESC", got)

	_, err = parseOrderBy(shelfColumns, "main_unit")
	require.Error(t, err)
}
