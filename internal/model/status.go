package model

// Access request status labels. Stored verbatim in the access-status attribute.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusDenied   = "Denied"
)

// KnownStatuses lists the statuses an admin can assign, in display order.
var KnownStatuses = []string{StatusPending, StatusApproved, StatusDenied}

// IsKnownStatus reports whether s is one of KnownStatuses.
func IsKnownStatus(s string) bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// DecisionStatuses are the outcomes of an admin decision on a request.
var DecisionStatuses = []string{StatusApproved, StatusDenied}

// IsDecision reports whether s is one of DecisionStatuses.
func IsDecision(s string) bool {
	return s == StatusApproved || s == StatusDenied
}

// Notification alert flag values. The table stores booleans as strings.
const (
	NotificationOn  = "true"
	NotificationOff = "false"
)
