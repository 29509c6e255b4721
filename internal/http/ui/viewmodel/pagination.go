package viewmodel

import (
	"net/url"
	"strconv"
)

// Pagination contains offset paging links for list views. The total is not
// known, so HasNext is inferred from a full page.
type Pagination struct {
	Limit   int
	Offset  int
	HasPrev bool
	HasNext bool
	PrevURL string
	NextURL string
}

// NewPagination builds links for a page of n rows fetched with limit/offset.
// base carries any filters that must survive paging.
func NewPagination(base url.URL, limit, offset, n int) Pagination {
	p := Pagination{Limit: limit, Offset: offset}
	if offset > 0 {
		p.HasPrev = true
		p.PrevURL = pageURL(base, limit, max(offset-limit, 0))
	}
	if limit > 0 && n >= limit {
		p.HasNext = true
		p.NextURL = pageURL(base, limit, offset+limit)
	}
	return p
}

func pageURL(base url.URL, limit, offset int) string {
	q := base.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	base.RawQuery = q.Encode()
	return base.String()
}
