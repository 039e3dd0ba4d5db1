package request

import (
	"net/http"
	"strconv"
)

// ParsePage returns the 1-based page query parameter. Missing or invalid
// values fall back to the first page.
func ParsePage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
