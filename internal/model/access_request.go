package model

import (
	"strings"
	"time"
)

// TimestampLayout is the day/month/year hour:minute format used for the
// access-request-date and admin-response-date attributes.
const TimestampLayout = "02/01/2006 15:04"

// AccessRequest is one employee's request for access to an environment.
// Attribute names match the DynamoDB table.
type AccessRequest struct {
	ID                string `dynamodbav:"Request-ID" json:"id"`
	FirstName         string `dynamodbav:"access-first-name" json:"first_name"`
	LastName          string `dynamodbav:"access-last-name" json:"last_name"`
	Email             string `dynamodbav:"access-email-address" json:"email"`
	Team              string `dynamodbav:"access-team" json:"team"`
	Environment       string `dynamodbav:"access-environment" json:"environment"`
	Status            string `dynamodbav:"access-status" json:"status"`
	Comments          string `dynamodbav:"access-comments" json:"comments"`
	RequestDate       string `dynamodbav:"access-request-date" json:"request_date"`
	AdminName         string `dynamodbav:"admin-full-name,omitempty" json:"admin_name,omitempty"`
	AdminResponseDate string `dynamodbav:"admin-response-date,omitempty" json:"admin_response_date,omitempty"`
	AdminComments     string `dynamodbav:"admin-comments,omitempty" json:"admin_comments,omitempty"`
	NotificationAlert string `dynamodbav:"notification-alert,omitempty" json:"notification_alert,omitempty"`
}

// Attribute names, in export column order.
const (
	AttrID                = "Request-ID"
	AttrFirstName         = "access-first-name"
	AttrLastName          = "access-last-name"
	AttrEmail             = "access-email-address"
	AttrTeam              = "access-team"
	AttrEnvironment       = "access-environment"
	AttrStatus            = "access-status"
	AttrComments          = "access-comments"
	AttrRequestDate       = "access-request-date"
	AttrAdminName         = "admin-full-name"
	AttrAdminResponseDate = "admin-response-date"
	AttrAdminComments     = "admin-comments"
	AttrNotificationAlert = "notification-alert"
)

// AccessRequestColumns is the fixed column order used for exports.
var AccessRequestColumns = []string{
	AttrID, AttrFirstName, AttrLastName, AttrEmail, AttrTeam, AttrEnvironment,
	AttrStatus, AttrComments, AttrRequestDate, AttrAdminName,
	AttrAdminResponseDate, AttrAdminComments, AttrNotificationAlert,
}

// Values returns the record's attribute values in AccessRequestColumns order.
func (a *AccessRequest) Values() []string {
	return []string{
		a.ID, a.FirstName, a.LastName, a.Email, a.Team, a.Environment,
		a.Status, a.Comments, a.RequestDate, a.AdminName,
		a.AdminResponseDate, a.AdminComments, a.NotificationAlert,
	}
}

// FullName is the requester's display name.
func (a *AccessRequest) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// RequestedAt parses RequestDate. ok is false when the stored value is
// missing or malformed.
func (a *AccessRequest) RequestedAt() (t time.Time, ok bool) {
	t, err := ParseTimestamp(a.RequestDate)
	return t, err == nil
}

// FormatTimestamp renders t in TimestampLayout.
// NormalizeNewlines converts CRLF and lone CR line endings to LF, the form
// a CSV reader gives back for multi-line values.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// AccessRequestFilter holds the optional dashboard predicates. An empty field
// places no constraint.
type AccessRequestFilter struct {
	Status      string
	Environment string
}

// Matches reports whether a satisfies every non-empty predicate.
func (f AccessRequestFilter) Matches(a *AccessRequest) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Environment != "" && a.Environment != f.Environment {
		return false
	}
	return true
}

// IsZero reports whether the filter imposes no constraint.
func (f AccessRequestFilter) IsZero() bool {
	return f.Status == "" && f.Environment == ""
}

// Decision is an admin's response to a request.
type Decision struct {
	Status    string
	Comments  string
	AdminName string
	At        time.Time
}
