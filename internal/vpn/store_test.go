package vpn

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cfi/selfservice/internal/model"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *mockS3) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	args := m.Called(ctx, in, opts.Expires)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

func newTestStore() (*ProfileStore, *mockS3) {
	m := new(mockS3)
	return NewProfileStore(m, m, "vpn-bucket", "vpn-profiles/"), m
}

func TestProfileStore_Put(t *testing.T) {
	s, m := newTestStore()
	ctx := context.Background()
	body := sampleProfile(newTestKeys(t))

	m.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "vpn-bucket" &&
			aws.ToString(in.Key) == "vpn-profiles/Test.conf"
	})).Return(&s3.PutObjectOutput{}, nil)

	require.NoError(t, s.Put(ctx, "Test", []byte(body)))
	m.AssertExpectations(t)
}

func TestProfileStore_Put_Invalid(t *testing.T) {
	s, m := newTestStore()

	err := s.Put(context.Background(), "Test", []byte("[Interface]\nPrivateKey = nope\n"))
	assert.ErrorIs(t, err, model.ErrValidation)
	m.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestProfileStore_Put_WrongEnvironment(t *testing.T) {
	s, m := newTestStore()

	err := s.Put(context.Background(), "Production", []byte(sampleProfile(newTestKeys(t))))
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "profile is for Test")
	m.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestProfileStore_Exists(t *testing.T) {
	s, m := newTestStore()
	ctx := context.Background()

	m.On("HeadObject", ctx, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "vpn-profiles/Test.conf"
	})).Return(&s3.HeadObjectOutput{}, nil)
	m.On("HeadObject", ctx, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "vpn-profiles/Production.conf"
	})).Return(nil, &types.NotFound{})
	m.On("HeadObject", ctx, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "vpn-profiles/Development.conf"
	})).Return(nil, errors.New("access denied"))

	ok, err := s.Exists(ctx, "Test")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "Production")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Exists(ctx, "Development")
	assert.ErrorIs(t, err, model.ErrUnavailable)
}

func TestProfileStore_Get(t *testing.T) {
	s, m := newTestStore()
	ctx := context.Background()

	m.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == "vpn-profiles/Test.conf"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("profile"))}, nil)
	m.On("GetObject", ctx, mock.Anything).Return(nil, &types.NoSuchKey{})

	body, err := s.Get(ctx, "Test")
	require.NoError(t, err)
	assert.Equal(t, "profile", string(body))

	_, err = s.Get(ctx, "Missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProfileStore_PresignDownload(t *testing.T) {
	s, m := newTestStore()
	ctx := context.Background()

	m.On("PresignGetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == "vpn-profiles/Test.conf"
	}), 15*time.Minute).Return(&v4.PresignedHTTPRequest{URL: "https://vpn-bucket.s3.amazonaws.com/vpn-profiles/Test.conf?X-Amz-Signature=abc"}, nil)

	url, err := s.PresignDownload(ctx, "Test", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "vpn-profiles/Test.conf")
}
