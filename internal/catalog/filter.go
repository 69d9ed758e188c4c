package catalog

import (
	"fmt"
	"strings"
)

type SortKey string

const (
	SortCatalog   SortKey = ""
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortNameAsc   SortKey = "name_asc"
	SortNameDesc  SortKey = "name_desc"
)

var sortAliases = map[string]SortKey{
	"":           SortCatalog,
	"price_asc":  SortPriceAsc,
	"price":      SortPriceAsc,
	"price_desc": SortPriceDesc,
	"-price":     SortPriceDesc,
	"name_asc":   SortNameAsc,
	"name":       SortNameAsc,
	"name_desc":  SortNameDesc,
	"-name":      SortNameDesc,
}

// ORDER BY clauses; product id breaks ties so results stay deterministic.
var orderClauses = map[SortKey]string{
	SortCatalog:   "p.id ASC",
	SortPriceAsc:  "p.price ASC, p.id ASC",
	SortPriceDesc: "p.price DESC, p.id ASC",
	SortNameAsc:   "p.name ASC, p.id ASC",
	SortNameDesc:  "p.name DESC, p.id ASC",
}

func ParseSortKey(raw string) (SortKey, error) {
	key, ok := sortAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: unknown sort key %q", ErrInvalidInput, raw)
	}
	return key, nil
}

// Filter narrows the catalog. Empty fields do not constrain the result.
type Filter struct {
	Category string
	Search   string
	Sort     SortKey
}

func (f Filter) orderBy() string {
	if clause, ok := orderClauses[f.Sort]; ok {
		return clause
	}
	return orderClauses[SortCatalog]
}

// whereClause renders the conjunctive filter and its positional arguments.
func (f Filter) whereClause() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("p.category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d OR p.category ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike makes LIKE metacharacters in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
