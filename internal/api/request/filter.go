package request

import (
	"net/http"
	"strings"

	"github.com/cfi/selfservice/internal/model"
)

// ParseFilter reads the status and environment query parameters. Empty
// values and "All" place no constraint.
func ParseFilter(r *http.Request) model.AccessRequestFilter {
	q := r.URL.Query()
	return NewFilter(q.Get("status"), q.Get("environment"))
}

func NewFilter(status, environment string) model.AccessRequestFilter {
	return model.AccessRequestFilter{
		Status:      filterValue(status),
		Environment: filterValue(environment),
	}
}

func filterValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}
