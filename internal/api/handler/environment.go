package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/cfi/selfservice/internal/api/request"
	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/session"
)

const (
	environmentsUpdateURL = "/environment-urls-vpn/update/"
	maxProfileSize        = 64 << 10
)

// Environment serves the approved-environments page and the admin page
// that maintains environment URLs and VPN profiles.
type Environment struct {
	svc             *core.EnvironmentService
	pages           *Pages
	profilesEnabled bool
}

func NewEnvironment(svc *core.EnvironmentService, pages *Pages, profilesEnabled bool) *Environment {
	return &Environment{svc: svc, pages: pages, profilesEnabled: profilesEnabled}
}

type environmentsData struct {
	Environments []model.ApprovedEnvironment
}

type environmentsUpdateData struct {
	URLs            []core.EnvironmentURL
	ProfilesEnabled bool
}

func (h *Environment) List(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	envs, err := h.svc.ApprovedEnvironments(r.Context(), sess.Email)
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "environments", "Environment URLs & VPN Profiles", environmentsData{Environments: envs})
}

func (h *Environment) UpdatePage(w http.ResponseWriter, r *http.Request) {
	urls, err := h.svc.URLs(r.Context())
	if err != nil {
		h.pages.Fail(w, r, err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "environments_update", "Update Environment URLs", environmentsUpdateData{
		URLs:            urls,
		ProfilesEnabled: h.profilesEnabled,
	})
}

// Update writes changed URLs and, when an environment is selected,
// publishes the uploaded VPN profile for it.
func (h *Environment) Update(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxProfileSize+(16<<10))
		if err := r.ParseMultipartForm(maxProfileSize); err != nil {
			h.invalid(w, r, &core.ServiceError{
				Message: "The upload is too large or malformed",
				Err:     fmt.Errorf("%w: %w", core.ErrValidation, err),
			})
			return
		}
	}

	var f request.EnvironmentsForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.invalid(w, r, err)
		return
	}

	changed, err := h.svc.UpdateURLs(r.Context(), f.URLs)
	if err != nil {
		if len(changed) > 0 {
			sess.AddFlash(FlashURLsUpdated + ": " + strings.Join(changed, ", "))
		}
		h.invalid(w, r, err)
		return
	}
	if len(changed) > 0 {
		sess.AddFlash(FlashURLsUpdated)
	}

	if f.VPNEnvironment != "" {
		body, err := profileUpload(r)
		if err == nil {
			err = h.svc.UploadProfile(r.Context(), f.VPNEnvironment, body)
		}
		if err != nil {
			h.invalid(w, r, err)
			return
		}
		sess.AddFlash(FlashProfileUploaded)
	}

	h.pages.Redirect(w, r, environmentsUpdateURL)
}

func profileUpload(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("vpnProfile")
	if err != nil {
		return nil, &core.ServiceError{
			Message: "Choose a VPN profile file to upload",
			Err:     fmt.Errorf("%w: %w", core.ErrValidation, err),
		}
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxProfileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read vpn profile: %w", err)
	}
	if len(body) > maxProfileSize {
		return nil, &core.ServiceError{Message: "The VPN profile is too large", Err: core.ErrValidation}
	}
	return body, nil
}

// invalid re-renders the update form for validation errors and shows the
// error page for anything else.
func (h *Environment) invalid(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, core.ErrValidation) {
		h.pages.Fail(w, r, err)
		return
	}
	urls, uerr := h.svc.URLs(r.Context())
	if uerr != nil {
		h.pages.Fail(w, r, uerr)
		return
	}
	h.pages.Invalid(w, r, http.StatusBadRequest, "environments_update", "Update Environment URLs", environmentsUpdateData{
		URLs:            urls,
		ProfilesEnabled: h.profilesEnabled,
	}, err)
}
