package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cfi/selfservice/internal/metrics"
	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/platform"
)

// SubmitInput is a requester's new access request.
type SubmitInput struct {
	FirstName   string
	LastName    string
	Email       string
	Team        string
	Environment string
	Comments    string
}

// AdminUpdateInput replaces every editable field of a request.
type AdminUpdateInput struct {
	FirstName     string
	LastName      string
	Email         string
	Team          string
	Environment   string
	Status        string
	RequestDate   string
	AdminComments string
}

// Dashboard is one page of the filtered, sorted request listing.
type Dashboard struct {
	Items      []model.AccessRequest
	Counts     StatusCounts
	Filter     model.AccessRequestFilter
	Page       int
	TotalPages int
}

type AccessRequestService struct {
	store     AccessRequestStore
	catalogue Catalogue
	now       func() time.Time
}

func NewAccessRequestService(store AccessRequestStore, catalogue Catalogue) *AccessRequestService {
	return &AccessRequestService{store: store, catalogue: catalogue, now: time.Now}
}

func (s *AccessRequestService) checkEnvironment(name string) error {
	if _, ok := s.catalogue.Lookup(name); !ok {
		return newServiceError(fmt.Sprintf("Unknown environment %q", name), ErrValidation)
	}
	return nil
}

// Submit records a new Pending request and returns it.
func (s *AccessRequestService) Submit(ctx context.Context, in SubmitInput) (*model.AccessRequest, error) {
	if err := s.checkEnvironment(in.Environment); err != nil {
		return nil, err
	}

	req := &model.AccessRequest{
		ID:          platform.NewID(),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       strings.TrimSpace(in.Email),
		Team:        strings.TrimSpace(in.Team),
		Environment: in.Environment,
		Status:      model.StatusPending,
		Comments:    in.Comments,
		RequestDate: model.FormatTimestamp(s.now()),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("submit access request: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("request_id", req.ID).
		Str("environment", req.Environment).
		Msg("access request submitted")
	return req, nil
}

func (s *AccessRequestService) Get(ctx context.Context, id string) (*model.AccessRequest, error) {
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get access request: %w", err)
	}
	return req, nil
}

// Decide records an admin's decision. The requester is notified on their
// next page view.
func (s *AccessRequestService) Decide(ctx context.Context, id, status, comments, adminName string) error {
	if !model.IsDecision(status) {
		return newServiceError(fmt.Sprintf("A decision must be %s, not %q",
			strings.Join(model.DecisionStatuses, " or "), status), ErrValidation)
	}

	err := s.store.Decide(ctx, id, model.Decision{
		Status:    status,
		Comments:  comments,
		AdminName: adminName,
		At:        s.now(),
	})
	if err != nil {
		return fmt.Errorf("decide access request: %w", err)
	}

	metrics.RecordDecision(status)
	zerolog.Ctx(ctx).Info().
		Str("request_id", id).
		Str("status", status).
		Str("admin", adminName).
		Msg("access request decided")
	return nil
}

// AdminUpdate overwrites a request with an admin's edits.
func (s *AccessRequestService) AdminUpdate(ctx context.Context, id string, in AdminUpdateInput, adminName string) error {
	if !model.IsKnownStatus(in.Status) {
		return newServiceError(fmt.Sprintf("Unknown status %q", in.Status), ErrValidation)
	}
	if err := s.checkEnvironment(in.Environment); err != nil {
		return err
	}
	if _, err := model.ParseTimestamp(in.RequestDate); err != nil {
		return newServiceError("Request date must be in DD/MM/YYYY HH:MM format", ErrValidation)
	}

	req, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("admin update: %w", err)
	}

	req.FirstName = strings.TrimSpace(in.FirstName)
	req.LastName = strings.TrimSpace(in.LastName)
	req.Email = strings.TrimSpace(in.Email)
	req.Team = strings.TrimSpace(in.Team)
	req.Environment = in.Environment
	req.Status = in.Status
	req.RequestDate = in.RequestDate
	req.AdminComments = in.AdminComments
	req.AdminName = adminName
	req.AdminResponseDate = model.FormatTimestamp(s.now())

	if err := s.store.Update(ctx, req); err != nil {
		return fmt.Errorf("admin update: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("request_id", id).Str("admin", adminName).Msg("access request updated")
	return nil
}

func (s *AccessRequestService) Delete(ctx context.Context, id, adminName string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete access request: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("request_id", id).Str("admin", adminName).Msg("access request deleted")
	return nil
}

// List returns every request matching f in dashboard order.
func (s *AccessRequestService) List(ctx context.Context, f model.AccessRequestFilter) ([]model.AccessRequest, error) {
	items, err := s.store.Scan(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list access requests: %w", err)
	}
	items = Filter(items, f)
	SortAccessRequests(items)
	return items, nil
}

// Dashboard returns one page of the listing together with status counts
// over the whole filtered set.
func (s *AccessRequestService) Dashboard(ctx context.Context, f model.AccessRequestFilter, page int) (*Dashboard, error) {
	items, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Items:      Paginate(items, page),
		Counts:     CountStatuses(items),
		Filter:     f,
		Page:       page,
		TotalPages: TotalPages(len(items)),
	}, nil
}

// Export returns the full filtered result set in dashboard order.
func (s *AccessRequestService) Export(ctx context.Context, f model.AccessRequestFilter) ([]model.AccessRequest, error) {
	return s.List(ctx, f)
}

// Notifications returns decisions on email's requests not yet seen.
func (s *AccessRequestService) Notifications(ctx context.Context, email string) ([]model.AccessRequest, error) {
	items, err := s.store.ScanNotifications(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	SortAccessRequests(items)
	return items, nil
}

// Acknowledge clears the notification on req if email is its requester
// and a decision is waiting to be seen.
func (s *AccessRequestService) Acknowledge(ctx context.Context, req *model.AccessRequest, email string) error {
	if req.NotificationAlert != model.NotificationOn || !strings.EqualFold(req.Email, email) {
		return nil
	}
	if err := s.store.ClearNotification(ctx, req.ID); err != nil {
		return fmt.Errorf("acknowledge notification: %w", err)
	}
	req.NotificationAlert = model.NotificationOff
	return nil
}

// Ping checks the backing table, for readiness probes.
func (s *AccessRequestService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
