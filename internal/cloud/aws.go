package cloud

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/cfi/selfservice/internal/config"
)

// LoadAWSConfig builds the shared aws.Config used by every client.
// When AWS_ENDPOINT_URL is set (LocalStack, integration tests) static
// credentials from AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY are used and
// all services are pointed at that endpoint.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.RegionName),
	}

	if cfg.AWSEndpointURL != "" {
		accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if accessKey == "" {
			accessKey, secretKey = "test", "test"
		}
		opts = append(opts,
			awsconfig.WithBaseEndpoint(cfg.AWSEndpointURL),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}
