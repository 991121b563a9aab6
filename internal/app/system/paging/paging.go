// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params is a parsed page request. Sort holds a Mongo sort document.
type Params struct {
	Page     int
	PageSize int
	Sort     bson.D
	SortKey  string
}

// Sorts maps the public sort names ("name", "created_at") to stored fields.
// A leading "-" on the request value sorts descending.
type Sorts map[string]string

// Parse reads page, page_size and sort from r. Missing values fall back to
// page 1, DefaultPageSize and def. Out-of-range values are validation errors.
func Parse(r *http.Request, sorts Sorts, def string) (Params, error) {
	p := Params{Page: 1, PageSize: DefaultPageSize}

	if s := query.Get(r, "page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, apperr.Validation("page must be a positive integer")
		}
		p.Page = n
	}
	if s := query.Get(r, "page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxPageSize {
			return p, apperr.Validation("page_size must be between 1 and " + strconv.Itoa(MaxPageSize))
		}
		p.PageSize = n
	}

	key := query.Get(r, "sort")
	if key == "" {
		key = def
	}
	dir, name := 1, key
	if len(key) > 0 && key[0] == '-' {
		dir, name = -1, key[1:]
	}
	field, ok := sorts[name]
	if !ok {
		return p, apperr.Validation("unsupported sort: " + key)
	}
	p.SortKey = key
	// _id tiebreak keeps pages stable when the sort field has duplicates.
	p.Sort = bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
	return p, nil
}

// Skip is the number of documents before this page.
func (p Params) Skip() int64 { return int64((p.Page - 1) * p.PageSize) }

// FindOptions applies sort, skip and limit.
func (p Params) FindOptions() *options.FindOptions {
	return options.Find().SetSort(p.Sort).SetSkip(p.Skip()).SetLimit(int64(p.PageSize))
}

// Page is the list envelope returned by every list endpoint.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage wraps items; a nil slice is encoded as [].
func NewPage[T any](items []T, total int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	return Page[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize, TotalPages: pages}
}
