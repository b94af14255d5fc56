package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// localStackKey is accepted by LocalStack for both key ID and secret.
const localStackKey = "test"

// Options selects region, endpoint override and static credentials.
type Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// LoadAWSConfig loads the default AWS config. Explicit keys replace the
// default credential chain. When Endpoint is set (for LocalStack) every
// service client is pointed at it, with LocalStack's dummy keys if none
// were given.
func LoadAWSConfig(ctx context.Context, o Options) (sdkaws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if o.Region != "" {
		opts = append(opts, config.WithRegion(o.Region))
	}

	accessKey, secret := o.AccessKeyID, o.SecretAccessKey
	if o.Endpoint != "" && accessKey == "" && secret == "" {
		accessKey, secret = localStackKey, localStackKey
	}
	if accessKey != "" || secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secret, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if o.Endpoint != "" {
		endpoint := o.Endpoint
		signingRegion := cfg.Region
		resolver := sdkaws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
			sr := signingRegion
			if sr == "" {
				sr = region
			}
			return sdkaws.Endpoint{
				URL:               endpoint,
				SigningRegion:     sr,
				HostnameImmutable: true,
			}, nil
		})
		cfg.EndpointResolverWithOptions = resolver
	}

	return cfg, nil
}
