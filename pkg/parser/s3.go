package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Scheme prefixes source names that are S3 objects.
const S3Scheme = "s3://"

// S3Config selects the S3 endpoint. Empty fields fall back to the AWS
// default chain (environment, shared config, instance role).
type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// S3API is the part of the S3 client the opener uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Opener opens s3://bucket/key names as streamed object bodies.
type S3Opener struct {
	client S3API
}

// NewS3Opener wraps an existing client.
func NewS3Opener(client S3API) *S3Opener {
	return &S3Opener{client: client}
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var loadOptions []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(cfg.Region); region != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	return s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
		}
		options.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Open fetches the object named by an s3://bucket/key URL.
func (o *S3Opener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(name)
	if err != nil {
		return nil, err
	}
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object failed: %w", err)
	}
	return out.Body, nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(name string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(name, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %q", name)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url %q needs a bucket and a key", name)
	}
	return bucket, key, nil
}

// IsS3 reports whether name is an S3 object URL.
func IsS3(name string) bool {
	return strings.HasPrefix(name, S3Scheme)
}

// RoutingOpener sends s3:// names to S3 and everything else to Local.
type RoutingOpener struct {
	Local Opener
	S3    Opener
}

func (o RoutingOpener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if IsS3(name) {
		if o.S3 == nil {
			return nil, fmt.Errorf("no s3 client configured for %s", name)
		}
		return o.S3.Open(ctx, name)
	}
	local := o.Local
	if local == nil {
		local = LocalOpener()
	}
	return local.Open(ctx, name)
}
