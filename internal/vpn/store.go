package vpn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cfi/selfservice/internal/metrics"
	"github.com/cfi/selfservice/internal/model"
)

// ObjectAPI is the subset of the S3 client used by ProfileStore.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ProfileStore keeps one profile per environment at <prefix><environment>.conf.
type ProfileStore struct {
	api     ObjectAPI
	presign Presigner
	bucket  string
	prefix  string
}

func NewProfileStore(api ObjectAPI, presign Presigner, bucket, prefix string) *ProfileStore {
	return &ProfileStore{api: api, presign: presign, bucket: bucket, prefix: prefix}
}

// NewProfileStoreFromConfig builds a store on a real S3 client. Path-style
// addressing is used when an endpoint override is configured.
func NewProfileStoreFromConfig(cfg aws.Config, bucket, prefix string) *ProfileStore {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.BaseEndpoint != nil
	})
	return NewProfileStore(client, s3.NewPresignClient(client), bucket, prefix)
}

func (s *ProfileStore) Key(environment string) string {
	return s.prefix + environment + ".conf"
}

// Put validates body and uploads it as the profile for environment.
func (s *ProfileStore) Put(ctx context.Context, environment string, body []byte) (err error) {
	p, err := ParseProfile(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid profile for %s: %w: %w", environment, model.ErrValidation, err)
	}
	if p.Environment != "" && p.Environment != environment {
		return fmt.Errorf("profile is for %s, not %s: %w", p.Environment, environment, model.ErrValidation)
	}

	defer metrics.ObserveUpstream("s3", "PutObject", time.Now(), &err)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(environment)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/plain"),
		ContentDisposition: aws.String(
			fmt.Sprintf(`attachment; filename="%s.conf"`, environment)),
	})
	if err != nil {
		return fmt.Errorf("upload profile %s: %w: %w", environment, model.ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether a profile has been published for environment.
func (s *ProfileStore) Exists(ctx context.Context, environment string) (_ bool, err error) {
	defer metrics.ObserveUpstream("s3", "HeadObject", time.Now(), &err)

	_, err = s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(environment)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("head profile %s: %w: %w", environment, model.ErrUnavailable, err)
	}
	return true, nil
}

// Get returns the stored profile body.
func (s *ProfileStore) Get(ctx context.Context, environment string) (_ []byte, err error) {
	defer metrics.ObserveUpstream("s3", "GetObject", time.Now(), &err)

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(environment)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("profile %s: %w", environment, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile %s: %w: %w", environment, model.ErrUnavailable, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", environment, err)
	}
	return body, nil
}

// PresignDownload returns a time-limited GET URL for the profile.
func (s *ProfileStore) PresignDownload(ctx context.Context, environment string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(environment)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign profile %s: %w", environment, err)
	}
	return req.URL, nil
}
