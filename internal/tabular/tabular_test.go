package tabular

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/tree"
)

const sheetCSV = "Level,Item Number,Qty\n0,RACK-1,1\n1,\"  SRV-1\",2\n"

func TestFileSourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bom.csv")
	require.NoError(t, os.WriteFile(path, []byte(sheetCSV), 0o600))

	src := NewFileSource(path)
	rows, err := src.ReadRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, bom.Row{"1", "  SRV-1", "2"}, rows[2])

	idx, err := src.FindColumn(ctx, tree.HeaderMatcher("qty"))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = src.FindColumn(ctx, tree.HeaderMatcher("Missing"))
	require.NoError(t, err)
	assert.Equal(t, -1, idx)

	require.NoError(t, src.WriteRows(ctx, 2, []bom.Row{{"1", "  SRV-1", "5"}, {"1", "  SW-1", "1"}}))
	rows, err = src.ReadRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "5", rows[2][2])
	assert.Equal(t, "  SW-1", rows[3][1])
	assert.Equal(t, "RACK-1", rows[1][1])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileSourceCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.csv")
	src := NewFileSource(path)
	require.NoError(t, src.WriteRows(context.Background(), 0, []bom.Row{{"Item Number"}, {"A"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Item Number\nA\n", string(data))

	_, err = NewFileSource(filepath.Join(t.TempDir(), "nope.csv")).ReadRows(context.Background())
	require.Error(t, err)
}

func TestPatchPadsGaps(t *testing.T) {
	out, err := patch([]bom.Row{{"h"}}, 3, []bom.Row{{"x"}})
	require.NoError(t, err)
	assert.Equal(t, []bom.Row{{"h"}, {}, {}, {"x"}}, out)

	_, err = patch(nil, -1, nil)
	assert.True(t, errors.IsValidationError(err))
}

type fakeS3 struct {
	objects map[string][]byte
	puts    int
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func TestS3Source(t *testing.T) {
	ctx := context.Background()
	api := &fakeS3{objects: map[string][]byte{"boms/racks/a.csv": []byte(sheetCSV)}}
	src := NewS3Source(api, "boms", "racks/a.csv")
	assert.Equal(t, "s3://boms/racks/a.csv", src.URL())

	rows, err := src.ReadRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, src.WriteRows(ctx, 1, []bom.Row{{"0", "RACK-2", "1"}}))
	assert.Equal(t, 1, api.puts)
	assert.True(t, strings.Contains(string(api.objects["boms/racks/a.csv"]), "RACK-2"))

	missing := NewS3Source(api, "boms", "missing.csv")
	_, err = missing.ReadRows(ctx)
	assert.True(t, errors.IsNotFound(err))
	require.NoError(t, missing.WriteRows(ctx, 0, []bom.Row{{"Item Number"}}))
	assert.Contains(t, api.objects, "boms/missing.csv")
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://boms/racks/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "boms", bucket)
	assert.Equal(t, "racks/a.csv", key)

	for _, bad := range []string{"boms/a.csv", "s3://boms", "s3:///a.csv"} {
		_, _, err := ParseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestOpenLocal(t *testing.T) {
	src, err := Open(context.Background(), "bom.csv", S3Config{})
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)

	_, err = Open(context.Background(), "", S3Config{})
	assert.Error(t, err)
}
