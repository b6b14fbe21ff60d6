package tabular

import (
	"context"
	"strings"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Open returns the source for path: an S3Source for s3:// URLs, a
// FileSource otherwise.
func Open(ctx context.Context, path string, s3cfg S3Config) (bom.TabularSource, error) {
	if path == "" {
		return nil, errors.NewConfigError("sheet", "sheet path is required", nil)
	}
	if !strings.HasPrefix(path, "s3://") {
		return NewFileSource(path), nil
	}
	bucket, key, err := ParseS3URL(path)
	if err != nil {
		return nil, err
	}
	client, err := NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewS3Source(client, bucket, key), nil
}
