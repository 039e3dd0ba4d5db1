package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	mw "github.com/cfi/selfservice/internal/api/middleware"
	"github.com/cfi/selfservice/internal/api/request"
	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/session"
)

const dashboardURL = "/access-requests/"

// AccessRequest serves the request dashboard, the request form and the
// admin pages.
type AccessRequest struct {
	svc       *core.AccessRequestService
	catalogue core.Catalogue
	pages     *Pages
	now       func() time.Time
}

func NewAccessRequest(svc *core.AccessRequestService, catalogue core.Catalogue, pages *Pages) *AccessRequest {
	return &AccessRequest{svc: svc, catalogue: catalogue, pages: pages, now: time.Now}
}

type dashboardData struct {
	Dashboard    *core.Dashboard
	Statuses     []string
	Environments []string
}

// PageURL links to page n of the listing, keeping the filter.
func (d dashboardData) PageURL(n int) string {
	q := url.Values{}
	if d.Dashboard.Filter.Status != "" {
		q.Set("status", d.Dashboard.Filter.Status)
	}
	if d.Dashboard.Filter.Environment != "" {
		q.Set("environment", d.Dashboard.Filter.Environment)
	}
	q.Set("page", strconv.Itoa(n))
	return dashboardURL + "?" + q.Encode()
}

type newRequestData struct {
	Form         request.AccessRequestForm
	Environments []string
}

type requestData struct {
	Request      *model.AccessRequest
	Statuses     []string
	Environments []string
	Now          string
}

func (h *AccessRequest) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context(), request.ParseFilter(r), request.ParsePage(r))
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "access_requests", "Access Requests", dashboardData{
		Dashboard:    d,
		Statuses:     model.KnownStatuses,
		Environments: h.catalogue.Names(),
	})
}

func (h *AccessRequest) NewPage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	first, last, _ := strings.Cut(sess.DisplayName, " ")
	h.pages.Render(w, r, http.StatusOK, "access_request_new", "New Request", newRequestData{
		Form:         request.AccessRequestForm{FirstName: first, LastName: last, Email: sess.Email},
		Environments: h.catalogue.Names(),
	})
}

func (h *AccessRequest) Create(w http.ResponseWriter, r *http.Request) {
	var f request.AccessRequestForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.invalidNew(w, r, f, err)
		return
	}

	_, err := h.svc.Submit(r.Context(), core.SubmitInput{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		Email:       f.Email,
		Team:        f.Team,
		Environment: f.Environment,
		Comments:    f.Comments,
	})
	if errors.Is(err, core.ErrValidation) {
		h.invalidNew(w, r, f, err)
		return
	}
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}

	session.FromContext(r.Context()).AddFlash(FlashRecordSubmitted)
	h.pages.Redirect(w, r, dashboardURL)
}

func (h *AccessRequest) invalidNew(w http.ResponseWriter, r *http.Request, f request.AccessRequestForm, err error) {
	h.pages.Invalid(w, r, http.StatusBadRequest, "access_request_new", "New Request", newRequestData{
		Form:         f,
		Environments: h.catalogue.Names(),
	}, err)
}

// View shows one request. Viewing your own decided request marks its
// notification as read.
func (h *AccessRequest) View(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}

	sess := session.FromContext(r.Context())
	if err := h.svc.Acknowledge(r.Context(), req, sess.Email); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("request_id", id).Msg("clear notification")
	} else {
		r = r.WithContext(mw.WithNotifications(r.Context(), without(mw.GetNotifications(r.Context()), req.ID, req.NotificationAlert)))
	}

	h.pages.Render(w, r, http.StatusOK, "access_request", req.FullName(), requestData{
		Request:  req,
		Statuses: model.DecisionStatuses,
	})
}

// Decide records an admin's decision from the request view page.
func (h *AccessRequest) Decide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := session.FromContext(r.Context())

	var f request.DecisionForm
	err := request.DecodeForm(r, &f)
	if err == nil {
		err = h.svc.Decide(r.Context(), id, f.Status, f.Comments, adminName(sess))
	}
	if errors.Is(err, core.ErrValidation) {
		req, gerr := h.svc.Get(r.Context(), id)
		if gerr != nil {
			h.pages.Fail(w, r, gerr)
			return
		}
		h.pages.Invalid(w, r, http.StatusBadRequest, "access_request", req.FullName(), requestData{
			Request:  req,
			Statuses: model.DecisionStatuses,
		}, err)
		return
	}
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}

	sess.AddFlash(FlashRecordUpdated)
	h.pages.Redirect(w, r, dashboardURL)
}

func (h *AccessRequest) AdminPage(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "access_request_admin", req.FullName(), h.adminData(req))
}

// Admin applies the admin control panel's Update or Delete action.
func (h *AccessRequest) Admin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := session.FromContext(r.Context())

	var f request.AdminForm
	err := request.DecodeForm(r, &f)
	flash := FlashRecordUpdated
	if err == nil {
		switch f.Action {
		case request.AdminActionDelete:
			err = h.svc.Delete(r.Context(), id, adminName(sess))
			flash = FlashRecordDeleted
		default:
			err = h.svc.AdminUpdate(r.Context(), id, core.AdminUpdateInput{
				FirstName:     f.FirstName,
				LastName:      f.LastName,
				Email:         f.Email,
				Team:          f.Team,
				Environment:   f.Environment,
				Status:        f.Status,
				RequestDate:   f.RequestDate,
				AdminComments: f.AdminComments,
			}, adminName(sess))
		}
	}
	if errors.Is(err, core.ErrValidation) {
		req, gerr := h.svc.Get(r.Context(), id)
		if gerr != nil {
			h.pages.Fail(w, r, gerr)
			return
		}
		h.pages.Invalid(w, r, http.StatusBadRequest, "access_request_admin", req.FullName(), h.adminData(req), err)
		return
	}
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}

	sess.AddFlash(flash)
	h.pages.Redirect(w, r, dashboardURL)
}

func (h *AccessRequest) adminData(req *model.AccessRequest) requestData {
	return requestData{
		Request:      req,
		Statuses:     model.KnownStatuses,
		Environments: h.catalogue.Names(),
		Now:          model.FormatTimestamp(h.now()),
	}
}

// Export downloads the filtered listing as CSV, or XLSX with format=xlsx.
func (h *AccessRequest) Export(w http.ResponseWriter, r *http.Request) {
	var f request.ExportForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	format := f.Format
	if format == "" {
		format = core.FormatCSV
	}

	items, err := h.svc.Export(r.Context(), request.NewFilter(f.Status, f.Environment))
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if format == core.FormatXLSX {
		err = core.WriteXLSX(&buf, items)
	} else {
		err = core.WriteCSV(&buf, items)
	}
	if err != nil {
		h.pages.Fail(w, r, fmt.Errorf("write %s export: %w", format, err))
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("format", format).Int("records", len(items)).Msg("access requests exported")
	w.Header().Set("Content-Type", core.ExportContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, core.ExportFilename(h.now(), format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// without drops id from items once its notification has been cleared.
func without(items []model.AccessRequest, id, alert string) []model.AccessRequest {
	if alert == model.NotificationOn {
		return items
	}
	out := make([]model.AccessRequest, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
