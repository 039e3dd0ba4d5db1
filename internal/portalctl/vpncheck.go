package portalctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cfi/selfservice/internal/vpn"
)

// Uploader publishes a profile for an environment.
type Uploader interface {
	Put(ctx context.Context, environment string, body []byte) error
}

// Fetcher returns the published profile for an environment.
type Fetcher interface {
	Get(ctx context.Context, environment string) ([]byte, error)
}

// CheckProfiles validates each profile file and prints a summary line per
// file. Every file is checked; the returned error joins all failures.
func CheckProfiles(paths []string, out io.Writer) error {
	var errs []error
	for _, path := range paths {
		p, err := checkProfile(path)
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		printProfile(out, path, p)
	}
	return errors.Join(errs...)
}

// CheckPublished fetches and validates the published profile of each
// environment.
func CheckPublished(ctx context.Context, src Fetcher, environments []string, out io.Writer) error {
	var errs []error
	for _, env := range environments {
		body, err := src.Get(ctx, env)
		if err == nil {
			var p *vpn.Profile
			if p, err = vpn.ParseProfile(bytes.NewReader(body)); err == nil {
				printProfile(out, env, p)
				continue
			}
		}
		fmt.Fprintf(out, "FAIL %s: %v\n", env, err)
		errs = append(errs, fmt.Errorf("%s: %w", env, err))
	}
	return errors.Join(errs...)
}

func printProfile(out io.Writer, label string, p *vpn.Profile) {
	env := p.Environment
	if env == "" {
		env = "-"
	}
	allowed := make([]string, len(p.AllowedIPs))
	for i, pfx := range p.AllowedIPs {
		allowed[i] = pfx.String()
	}
	fmt.Fprintf(out, "OK   %s: environment=%s endpoint=%s peer=%s allowed=%s\n",
		label, env, p.Endpoint, p.PublicKey, strings.Join(allowed, ","))
}

func checkProfile(path string) (*vpn.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return vpn.ParseProfile(f)
}

// UploadProfile validates the file at path and publishes it for environment.
func UploadProfile(ctx context.Context, up Uploader, environment, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := up.Put(ctx, environment, body); err != nil {
		return err
	}
	fmt.Printf("Uploaded %s as the %s VPN profile\n", path, environment)
	return nil
}
