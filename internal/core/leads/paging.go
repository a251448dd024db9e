package leads

import "strconv"

// NormalizePaging parses page and limit query values. A missing, non-numeric
// or non-positive page becomes 1. A missing, non-numeric or non-positive limit
// becomes defaultLimit, and a limit above maxLimit is capped.
func NormalizePaging(pageStr, limitStr string, defaultLimit, maxLimit int) (page, limit int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}
