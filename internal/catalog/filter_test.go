package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		raw     string
		want    SortKey
		wantErr bool
	}{
		{raw: "", want: SortCatalog},
		{raw: "price_asc", want: SortPriceAsc},
		{raw: "price", want: SortPriceAsc},
		{raw: "-price", want: SortPriceDesc},
		{raw: "PRICE_DESC", want: SortPriceDesc},
		{raw: " name ", want: SortNameAsc},
		{raw: "-name", want: SortNameDesc},
		{raw: "rating", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSortKey(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_WhereClause(t *testing.T) {
	where, args := Filter{}.whereClause()
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = Filter{Category: "books"}.whereClause()
	assert.Equal(t, "WHERE p.category = $1", where)
	assert.Equal(t, []any{"books"}, args)

	where, args = Filter{Category: "books", Search: "Go"}.whereClause()
	assert.Equal(t, "WHERE p.category = $1 AND (p.name ILIKE $2 OR p.description ILIKE $2 OR p.category ILIKE $2)", where)
	assert.Equal(t, []any{"books", "%Go%"}, args)

	where, args = Filter{Search: "50%_off"}.whereClause()
	assert.Equal(t, "WHERE (p.name ILIKE $1 OR p.description ILIKE $1 OR p.category ILIKE $1)", where)
	assert.Equal(t, []any{`%50\%\_off%`}, args)
}

func TestFilter_OrderBy(t *testing.T) {
	assert.Equal(t, "p.id ASC", Filter{}.orderBy())
	assert.Equal(t, "p.price DESC, p.id ASC", Filter{Sort: SortPriceDesc}.orderBy())
	assert.Equal(t, "p.name ASC, p.id ASC", Filter{Sort: SortNameAsc}.orderBy())
	assert.Equal(t, "p.id ASC", Filter{Sort: "bogus"}.orderBy())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
