package core

import (
	"sort"

	"github.com/cfi/selfservice/internal/model"
)

// PageSize is the number of access requests shown per dashboard page.
const PageSize = 10

// Filter returns the items matching every non-empty predicate of f.
func Filter(items []model.AccessRequest, f model.AccessRequestFilter) []model.AccessRequest {
	out := make([]model.AccessRequest, 0, len(items))
	for i := range items {
		if f.Matches(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// SortAccessRequests orders items in place: status descending
// (Pending, Denied, Approved), then request time descending. Records whose
// request date cannot be parsed sort last within their status. The sort is
// stable.
func SortAccessRequests(items []model.AccessRequest) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if a.Status != b.Status {
			return a.Status > b.Status
		}
		ta, okA := a.RequestedAt()
		tb, okB := b.RequestedAt()
		switch {
		case okA && okB:
			return ta.After(tb)
		case okA != okB:
			return okA
		default:
			return false
		}
	})
}

// TotalPages returns ceil(n / PageSize).
func TotalPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

// Paginate returns page (1-based) of items. Pages outside
// [1, TotalPages] yield an empty slice.
func Paginate(items []model.AccessRequest, page int) []model.AccessRequest {
	if page < 1 {
		return []model.AccessRequest{}
	}
	start := (page - 1) * PageSize
	if start >= len(items) {
		return []model.AccessRequest{}
	}
	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// StatusCounts tallies a result set. Other counts records whose status is
// none of the known ones, so Pending+Approved+Denied+Other == Total.
type StatusCounts struct {
	Total    int
	Pending  int
	Approved int
	Denied   int
	Other    int
}

func CountStatuses(items []model.AccessRequest) StatusCounts {
	var c StatusCounts
	for i := range items {
		c.Total++
		switch items[i].Status {
		case model.StatusPending:
			c.Pending++
		case model.StatusApproved:
			c.Approved++
		case model.StatusDenied:
			c.Denied++
		default:
			c.Other++
		}
	}
	return c
}
