package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/session"
)

type notificationsKey struct{}

// NotificationSource lists decisions a requester has not seen yet.
type NotificationSource interface {
	Notifications(ctx context.Context, email string) ([]model.AccessRequest, error)
}

// Notifications loads the signed-in user's unread decisions for the
// navigation bar. A failed lookup is logged and the page renders without them.
func Notifications(src NotificationSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if sess == nil || sess.Email == "" {
				next.ServeHTTP(w, r)
				return
			}

			items, err := src.Notifications(r.Context(), sess.Email)
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("load notifications")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithNotifications(r.Context(), items)))
		})
	}
}

func WithNotifications(ctx context.Context, items []model.AccessRequest) context.Context {
	return context.WithValue(ctx, notificationsKey{}, items)
}

// GetNotifications returns the notifications loaded for this request.
func GetNotifications(ctx context.Context) []model.AccessRequest {
	items, _ := ctx.Value(notificationsKey{}).([]model.AccessRequest)
	return items
}
