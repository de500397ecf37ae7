package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

var ErrBadSegment = errors.New("unrecognized category segment")

type Sort struct {
	Column string
	Desc   bool
}

type Filter struct {
	Column string
	Values []string
}

// Query is the fully resolved filter/sort/pagination plan for one listing
// request. Filters always hold stored attribute values ("Rose Gold"), never
// raw path tokens.
type Query struct {
	Spec     *Spec
	Filters  []Filter
	MinPrice *float64
	MaxPrice *float64
	Sort     Sort
	Page     int
	Limit    int
}

// Build resolves the category path segment and the query string into a Query.
// Explicit multi-value parameters win over whatever the segment implied for
// the same column.
func Build(spec *Spec, segment string, params url.Values) (Query, error) {
	q := Query{
		Spec:  spec,
		Page:  pageParam(params.Get("page")),
		Limit: limitParam(params.Get("limit"), spec.DefaultLimit),
		Sort:  sortFor(spec, params.Get("sort")),
	}

	byColumn := map[string]Filter{}
	var order []string

	if segment != "" && segment != "all" {
		f, err := parseSegment(spec, segment)
		if err != nil {
			return Query{}, err
		}
		byColumn[f.Column] = f
		order = append(order, f.Column)
	}

	for param, column := range spec.Params {
		raw := params.Get(param)
		if raw == "" {
			continue
		}
		values := splitCSV(raw)
		if len(values) == 0 {
			continue
		}
		if _, seen := byColumn[column]; !seen {
			order = append(order, column)
		}
		byColumn[column] = Filter{Column: column, Values: values}
	}

	for _, col := range order {
		q.Filters = append(q.Filters, byColumn[col])
	}

	if v := params.Get("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MinPrice = &f
		}
	}
	if v := params.Get("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MaxPrice = &f
		}
	}

	return q, nil
}

// parseSegment turns "metal-yellow-gold" into {metal, ["Yellow Gold"]} using
// the category's dimension vocabulary.
func parseSegment(spec *Spec, segment string) (Filter, error) {
	for dim, column := range spec.Dimensions {
		prefix := dim + "-"
		if !strings.HasPrefix(segment, prefix) {
			continue
		}
		value := titleWords(strings.TrimPrefix(segment, prefix))
		if column == "metal" {
			value = goldSuffix(value)
		}
		return Filter{Column: column, Values: []string{value}}, nil
	}
	return Filter{}, fmt.Errorf("%w: %q", ErrBadSegment, segment)
}

func titleWords(hyphenated string) string {
	words := strings.Split(hyphenated, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// goldSuffix recovers the stored metal-color value: "Rose" becomes
// "Rose Gold", values already carrying the suffix (including the literal
// "Two Tone Gold") pass through, and Platinum is not a gold color at all.
func goldSuffix(v string) string {
	if v == "Platinum" || strings.HasSuffix(v, "Gold") {
		return v
	}
	return v + " Gold"
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pageParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func limitParam(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 100 {
		return def
	}
	return n
}

func sortFor(spec *Spec, key string) Sort {
	switch key {
	case "price-asc":
		return Sort{Column: "price"}
	case "price-desc":
		return Sort{Column: "price", Desc: true}
	case "newest":
		return Sort{Column: "created_at", Desc: true}
	}
	if s, ok := spec.Sorts[key]; ok {
		return s
	}
	return Sort{Column: "price"}
}

// Scope applies visibility, attribute, and price conditions, without sort or
// pagination, so the same conditions drive both the count and the page fetch.
func (q Query) Scope(db *gorm.DB) *gorm.DB {
	db = db.Where("is_active = ? AND is_available = ?", true, true)

	for _, f := range q.Filters {
		if len(f.Values) == 1 {
			db = db.Where(f.Column+" = ?", f.Values[0])
		} else {
			db = db.Where(f.Column+" IN ?", f.Values)
		}
	}

	// An item matches a price range on either its regular or its sale
	// price; unset sale prices never match the sale branch.
	if q.MinPrice != nil || q.MaxPrice != nil {
		base := "1=1"
		sale := "sale_price IS NOT NULL"
		var args []any
		if q.MinPrice != nil && q.MaxPrice != nil {
			base = "(price >= ? AND price <= ?)"
			sale += " AND sale_price >= ? AND sale_price <= ?"
			args = []any{*q.MinPrice, *q.MaxPrice, *q.MinPrice, *q.MaxPrice}
		} else if q.MinPrice != nil {
			base = "price >= ?"
			sale += " AND sale_price >= ?"
			args = []any{*q.MinPrice, *q.MinPrice}
		} else {
			base = "price <= ?"
			sale += " AND sale_price <= ?"
			args = []any{*q.MaxPrice, *q.MaxPrice}
		}
		db = db.Where("("+base+") OR ("+sale+")", args...)
	}

	return db
}

// Apply adds sort and the pagination window on top of Scope.
func (q Query) Apply(db *gorm.DB) *gorm.DB {
	dir := "ASC"
	if q.Sort.Desc {
		dir = "DESC"
	}
	return q.Scope(db).
		Order(q.Sort.Column + " " + dir).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit)
}

type PageMeta struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
}

func NewPageMeta(page, limit int, total int64) PageMeta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PageMeta{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
	}
}
