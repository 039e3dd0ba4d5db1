package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cfi/selfservice/internal/model"
)

// maxSecretLookups bounds concurrent Secrets Manager calls per page view.
const maxSecretLookups = 4

type EnvironmentService struct {
	requests  AccessRequestStore
	secrets   SecretStore
	profiles  ProfileStore // nil when no VPN bucket is configured
	catalogue Catalogue
	linkTTL   time.Duration
}

func NewEnvironmentService(requests AccessRequestStore, secrets SecretStore, profiles ProfileStore, catalogue Catalogue, linkTTL time.Duration) *EnvironmentService {
	return &EnvironmentService{
		requests:  requests,
		secrets:   secrets,
		profiles:  profiles,
		catalogue: catalogue,
		linkTTL:   linkTTL,
	}
}

// SortByPrecedence orders approved requests by catalogue rank. Unknown
// environments go last; ties keep their input order.
func SortByPrecedence(items []model.AccessRequest, catalogue Catalogue) {
	sort.SliceStable(items, func(i, j int) bool {
		return catalogue.Precedence(items[i].Environment) < catalogue.Precedence(items[j].Environment)
	})
}

// ApprovedEnvironments returns the environments email has approved access
// to, each with its URL and, when published, a VPN profile link. A URL that
// cannot be resolved fails the whole call.
func (s *EnvironmentService) ApprovedEnvironments(ctx context.Context, email string) ([]model.ApprovedEnvironment, error) {
	approved, err := s.requests.ScanApproved(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("scan approved requests: %w", err)
	}
	SortByPrecedence(approved, s.catalogue)

	out := make([]model.ApprovedEnvironment, len(approved))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSecretLookups)

	for i := range approved {
		out[i].Request = approved[i]
		g.Go(func() error {
			name := approved[i].Environment
			env, ok := s.catalogue.Lookup(name)
			if !ok {
				return newServiceError(fmt.Sprintf("No URL is configured for %s", name), fmt.Errorf("environment %s: %w", name, ErrNotFound))
			}
			url, err := s.secrets.Get(gctx, env.URLSecret)
			if err != nil {
				return fmt.Errorf("resolve %s url: %w", name, err)
			}
			out[i].URL = url

			if s.profiles == nil {
				return nil
			}
			link, err := s.profileLink(gctx, name)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("environment", name).Msg("vpn profile link unavailable")
				return nil
			}
			out[i].VPNProfile = link
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *EnvironmentService) profileLink(ctx context.Context, environment string) (string, error) {
	ok, err := s.profiles.Exists(ctx, environment)
	if err != nil || !ok {
		return "", err
	}
	return s.profiles.PresignDownload(ctx, environment, s.linkTTL)
}

// EnvironmentURL is one row of the admin URL form. Missing is set when
// no URL has been stored for the environment yet.
type EnvironmentURL struct {
	Environment string
	URL         string
	Missing     bool
}

// URLs returns the current URL of every catalogue environment. A URL that
// was never stored comes back empty with Missing set.
func (s *EnvironmentService) URLs(ctx context.Context) ([]EnvironmentURL, error) {
	envs := s.catalogue.All()
	out := make([]EnvironmentURL, len(envs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSecretLookups)
	for i, env := range envs {
		out[i].Environment = env.Name
		g.Go(func() error {
			url, err := s.secrets.Get(gctx, env.URLSecret)
			switch {
			case errors.Is(err, ErrNotFound):
				out[i].Missing = true
			case err != nil:
				return fmt.Errorf("resolve %s url: %w", env.Name, err)
			default:
				out[i].URL = url
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateURLs writes the values that differ from the stored ones and
// returns the environments that changed. Values are validated before
// anything is written. When a write fails the environments already
// written are returned along with the error.
func (s *EnvironmentService) UpdateURLs(ctx context.Context, values map[string]string) ([]string, error) {
	current, err := s.URLs(ctx)
	if err != nil {
		return nil, err
	}

	var pending []EnvironmentURL
	for _, cur := range current {
		v, ok := values[cur.Environment]
		if !ok || v == cur.URL {
			continue
		}
		if v == "" {
			return nil, newServiceError(fmt.Sprintf("URL for %s cannot be empty", cur.Environment), ErrValidation)
		}
		pending = append(pending, EnvironmentURL{Environment: cur.Environment, URL: v})
	}

	var changed []string
	for _, p := range pending {
		env, _ := s.catalogue.Lookup(p.Environment)
		if err := s.secrets.Put(ctx, env.URLSecret, p.URL); err != nil {
			return changed, fmt.Errorf("update %s url: %w", p.Environment, err)
		}
		changed = append(changed, p.Environment)
	}

	if len(changed) > 0 {
		zerolog.Ctx(ctx).Info().Strs("environments", changed).Msg("environment urls updated")
	}
	return changed, nil
}

// UploadProfile validates and publishes a VPN profile for environment.
func (s *EnvironmentService) UploadProfile(ctx context.Context, environment string, body []byte) error {
	if s.profiles == nil {
		return newServiceError("VPN profile storage is not configured", ErrUnavailable)
	}
	if _, ok := s.catalogue.Lookup(environment); !ok {
		return newServiceError(fmt.Sprintf("Unknown environment %q", environment), ErrValidation)
	}
	if err := s.profiles.Put(ctx, environment, body); err != nil {
		if errors.Is(err, ErrValidation) {
			return newServiceError("The VPN profile was rejected: "+err.Error(), err)
		}
		return fmt.Errorf("upload vpn profile: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("environment", environment).Msg("vpn profile published")
	return nil
}
