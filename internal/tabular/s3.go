package tabular

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// S3API is the subset of the S3 client the sheet needs.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures access to S3-compatible storage. Static credentials
// are used when both keys are set; otherwise the default AWS chain applies.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// S3Source is a CSV sheet stored as one S3 object.
type S3Source struct {
	api    S3API
	bucket string
	key    string
}

// NewS3Source creates an S3Source over an existing client.
func NewS3Source(api S3API, bucket, key string) *S3Source {
	return &S3Source{api: api, bucket: bucket, key: key}
}

// NewS3Client builds an S3 client from cfg. A custom endpoint implies
// path-style addressing, as MinIO and most S3 clones require.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewConfigError("s3", "failed to load AWS config", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(raw string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return "", "", errors.NewValidationError("sheet.path", raw, "not an s3:// URL")
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.NewValidationError("sheet.path", raw, "s3 URL needs a bucket and a key")
	}
	return bucket, key, nil
}

// URL returns the s3:// URL of the sheet.
func (s *S3Source) URL() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// ReadRows implements bom.TabularSource.
func (s *S3Source) ReadRows(ctx context.Context) ([]bom.Row, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, errors.Join(errors.NewNotFoundError("sheet", s.URL()), err)
		}
		return nil, errors.WrapIO("get", s.URL(), err)
	}
	defer func() { _ = out.Body.Close() }()
	return decode(out.Body, s.URL())
}

// WriteRows implements bom.TabularSource. The object is rewritten whole;
// a missing object is created.
func (s *S3Source) WriteRows(ctx context.Context, startRow int, rows []bom.Row) error {
	existing, err := s.ReadRows(ctx)
	if err != nil && !errors.IsNotFound(err) {
		return err
	}
	merged, err := patch(existing, startRow, rows)
	if err != nil {
		return err
	}
	data, err := encode(merged)
	if err != nil {
		return errors.WrapParse("csv", s.URL(), err)
	}
	if _, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	}); err != nil {
		return errors.WrapIO("put", s.URL(), err)
	}
	return nil
}

// FindColumn implements bom.TabularSource.
func (s *S3Source) FindColumn(ctx context.Context, pred func(string) bool) (int, error) {
	rows, err := s.ReadRows(ctx)
	if err != nil {
		return -1, err
	}
	return findColumn(rows, pred), nil
}

var _ bom.TabularSource = (*S3Source)(nil)
