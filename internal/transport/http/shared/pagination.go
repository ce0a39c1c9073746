package shared

import (
	"net/url"
	"strconv"
	"strings"
)

type Pagination struct {
	Limit  int
	Offset int
}

// Pagination reads limit and offset from the query. Missing values take the
// defaults; malformed values are reported on the validator. Limits above
// maxLimit are clamped rather than rejected.
func (v *Validator) Pagination(query url.Values, defaultLimit, maxLimit int) Pagination {
	page := Pagination{Limit: defaultLimit}
	if n, ok := v.queryInt(query, "limit"); ok {
		if n <= 0 {
			v.Add("limit", "must be greater than zero")
		} else {
			page.Limit = n
		}
	}
	if n, ok := v.queryInt(query, "offset"); ok {
		if n < 0 {
			v.Add("offset", "must not be negative")
		} else {
			page.Offset = n
		}
	}
	if maxLimit > 0 {
		page.Limit = min(page.Limit, maxLimit)
	}
	return page
}

func (v *Validator) queryInt(query url.Values, key string) (int, bool) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.Add(key, "must be an integer")
		return 0, false
	}
	return n, true
}
