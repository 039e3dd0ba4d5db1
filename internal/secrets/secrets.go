// Package secrets reads and writes single keys of JSON secrets stored in
// AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/cfi/selfservice/internal/metrics"
	"github.com/cfi/selfservice/internal/model"
)

type API interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

type Store struct {
	api API
}

func New(api API) *Store {
	return &Store{api: api}
}

func NewFromConfig(cfg aws.Config) *Store {
	return New(secretsmanager.NewFromConfig(cfg))
}

// Get returns ref.Key from the JSON object stored in secret ref.Name.
// A missing secret or key is ErrNotFound.
func (s *Store) Get(ctx context.Context, ref model.SecretRef) (string, error) {
	values, err := s.load(ctx, ref.Name)
	if err != nil {
		return "", err
	}
	v, ok := values[ref.Key]
	if !ok {
		return "", fmt.Errorf("secret %s key %s: %w", ref.Name, ref.Key, model.ErrNotFound)
	}
	return v, nil
}

// Resolve returns direct when it is set and the value stored at ref
// otherwise.
func (s *Store) Resolve(ctx context.Context, direct string, ref model.SecretRef) (string, error) {
	if direct != "" {
		return direct, nil
	}
	return s.Get(ctx, ref)
}

// Put sets ref.Key to value, preserving the other keys of the secret.
func (s *Store) Put(ctx context.Context, ref model.SecretRef, value string) (err error) {
	values, err := s.load(ctx, ref.Name)
	if err != nil {
		return err
	}
	values[ref.Key] = value

	body, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode secret %s: %w", ref.Name, err)
	}

	defer metrics.ObserveUpstream("secretsmanager", "PutSecretValue", time.Now(), &err)
	_, err = s.api.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(ref.Name),
		SecretString: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("put secret %s: %w: %w", ref.Name, model.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, name string) (_ map[string]string, err error) {
	defer metrics.ObserveUpstream("secretsmanager", "GetSecretValue", time.Now(), &err)

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			return nil, fmt.Errorf("secret %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get secret %s: %w: %w", name, model.ErrUnavailable, err)
	}

	values := map[string]string{}
	if s := aws.ToString(out.SecretString); s != "" {
		if err := json.Unmarshal([]byte(s), &values); err != nil {
			return nil, fmt.Errorf("decode secret %s: %w", name, err)
		}
	}
	return values, nil
}
