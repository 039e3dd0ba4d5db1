package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/cfi/selfservice/internal/api/request"
	"github.com/cfi/selfservice/internal/cloud"
	"github.com/cfi/selfservice/internal/config"
	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/identity"
	"github.com/cfi/selfservice/internal/logging"
	"github.com/cfi/selfservice/internal/portalctl"
	"github.com/cfi/selfservice/internal/secrets"
	"github.com/cfi/selfservice/internal/store"
	"github.com/cfi/selfservice/internal/vpn"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		status := fs.String("status", "", "Only export requests with this status")
		environment := fs.String("environment", "", "Only export requests for this environment")
		format := fs.String("format", core.FormatCSV, "Output format: csv or xlsx")
		out := fs.String("o", "-", "Output file (- for stdout)")
		timeout := fs.Duration("timeout", 2*time.Minute, "Timeout for the table scan")
		fs.Parse(os.Args[2:])

		ctx, cfg := setup()
		ctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()

		catalogue, err := config.LoadCatalogue(cfg)
		if err != nil {
			fail(err)
		}
		awsCfg, err := cloud.LoadAWSConfig(ctx, cfg)
		if err != nil {
			fail(err)
		}
		svc := core.NewAccessRequestService(store.NewFromConfig(awsCfg, cfg.AccessRequestsTable), catalogue)

		if err := portalctl.ExportFile(ctx, svc, request.NewFilter(*status, *environment), *format, *out); err != nil {
			fail(err)
		}

	case "vpn-check":
		fs := flag.NewFlagSet("vpn-check", flag.ExitOnError)
		upload := fs.String("upload", "", "Publish the profile for this environment after checking it")
		published := fs.Bool("published", false, "Check the profiles published for the named environments")
		fs.Parse(os.Args[2:])

		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: portalctl vpn-check [-upload ENVIRONMENT] <profile.conf>...")
			fmt.Fprintln(os.Stderr, "       portalctl vpn-check -published <environment>...")
			os.Exit(1)
		}
		if *published {
			ctx, cfg := setup()
			ctx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			profiles := profileStore(ctx, cfg)
			if err := portalctl.CheckPublished(ctx, profiles, fs.Args(), os.Stdout); err != nil {
				os.Exit(1)
			}
			return
		}
		if err := portalctl.CheckProfiles(fs.Args(), os.Stdout); err != nil {
			os.Exit(1)
		}
		if *upload == "" {
			return
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "Error: -upload takes exactly one profile")
			os.Exit(1)
		}

		ctx, cfg := setup()
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		profiles := profileStore(ctx, cfg)
		if err := portalctl.UploadProfile(ctx, profiles, *upload, fs.Arg(0)); err != nil {
			fail(err)
		}

	case "set-password":
		fs := flag.NewFlagSet("set-password", flag.ExitOnError)
		force := fs.Bool("force", false, "Set the password even if the user is not awaiting a change")
		fs.Parse(os.Args[2:])

		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "Usage: portalctl set-password [-force] <username> < password")
			os.Exit(1)
		}
		password, err := portalctl.ReadPassword(os.Stdin)
		if err != nil {
			fail(err)
		}

		ctx, cfg := setup()
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		awsCfg, err := cloud.LoadAWSConfig(ctx, cfg)
		if err != nil {
			fail(err)
		}
		userPoolID, err := secrets.NewFromConfig(awsCfg).Resolve(ctx, cfg.CognitoUserPoolID, cfg.CognitoUserPoolIDSecret)
		if err != nil {
			fail(fmt.Errorf("resolve user pool id: %w", err))
		}
		idp := identity.NewFromConfig(awsCfg, cfg.CognitoClientID, userPoolID)
		if err := portalctl.SetPassword(ctx, idp, fs.Arg(0), password, *force, os.Stdout); err != nil {
			fail(err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// setup loads the configuration and returns a context carrying the logger.
func setup() (context.Context, *config.Config) {
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	if err := cfg.Validate("portalctl"); err != nil {
		fail(err)
	}
	logger := logging.NewLogger(cfg)
	return logger.WithContext(context.Background()), cfg
}

// profileStore opens the VPN profile bucket or exits when none is configured.
func profileStore(ctx context.Context, cfg *config.Config) *vpn.ProfileStore {
	if cfg.VPNProfileBucket == "" {
		fail(fmt.Errorf("VPN_PROFILE_BUCKET is not set"))
	}
	awsCfg, err := cloud.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fail(err)
	}
	return vpn.NewProfileStoreFromConfig(awsCfg, cfg.VPNProfileBucket, cfg.VPNProfilePrefix)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  portalctl export [-status S] [-environment E] [-format csv|xlsx] [-o FILE]
      Export access requests from the DynamoDB table.
  portalctl vpn-check [-upload ENVIRONMENT] <profile.conf>...
      Validate WireGuard client profiles and optionally publish one.
  portalctl vpn-check -published <environment>...
      Validate the profiles published in the VPN profile bucket.
  portalctl set-password [-force] <username> < password
      Set a permanent Cognito password read from stdin.`)
}
