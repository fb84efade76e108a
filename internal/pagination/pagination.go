// Package pagination implements page/limit paging for the feed endpoints.
//
// Both the global feed and the per-user feed page the same way: the client
// sends ?page=N&limit=M, the store is queried with LIMIT/OFFSET, and the
// response carries a hasMore flag derived from the total matching count,
// never from whether the returned page happened to be short.
package pagination

import "strconv"

const (
	DefaultPage  = 1
	DefaultLimit = 5
)

// Params is a coerced, always-valid page request.
// Construct via Parse; a zero Params is not meaningful.
type Params struct {
	Page  int
	Limit int
}

// Parse coerces raw query values into paging parameters. Absent,
// non-numeric, or non-positive values fall back to the defaults (page 1,
// limit 5), matching how the feed API has always treated bad input.
func Parse(pageStr, limitStr string) Params {
	return Params{
		Page:  coerce(pageStr, DefaultPage),
		Limit: coerce(limitStr, DefaultLimit),
	}
}

func coerce(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Offset returns the number of rows to skip for this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// HasMore reports whether pages exist beyond this one, given the total
// number of matching rows.
func (p Params) HasMore(total int) bool {
	return p.Page*p.Limit < total
}
