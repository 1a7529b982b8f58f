package blob

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in memory and pages listings two at a time
type fakeS3 struct {
	objects      map[string]string
	contentTypes map[string]string
	deleteCalls  int
	listCalls    int
	putErr       error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listCalls++
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start = sort.SearchStrings(keys, *in.ContinuationToken)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = string(body)
	f.contentTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deleteCalls++
	for _, obj := range in.Delete.Objects {
		delete(f.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestS3Config_Validate(t *testing.T) {
	cfg := &S3Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrNoBucket)

	cfg = WithEndpointConfig("http://localhost:9000", "site", "ak", "sk")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "auto", cfg.Region)
}

func TestS3Store_ListKeysStripsPrefix(t *testing.T) {
	api := newFakeS3()
	for _, k := range []string{"site/a", "site/b", "site/c", "other/d", "site/e"} {
		api.objects[k] = k
	}
	store := NewS3Store(api, &S3Config{BucketName: "bucket", Prefix: "site/"})

	keys, err := store.ListKeys(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "e"}, keys)
	assert.Equal(t, 2, api.listCalls, "paginates")
}

func TestS3Store_BulkPut(t *testing.T) {
	api := newFakeS3()
	store := NewS3Store(api, &S3Config{BucketName: "bucket", Prefix: "p/"})

	err := store.BulkPut(t.Context(), []assets.Entry{
		{Key: "index.abc.html", Content: []byte("<h1>"), ContentType: "text/html"},
		{Key: "app.def.js", Content: []byte("1"), ContentType: "text/javascript"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<h1>", api.objects["p/index.abc.html"])
	assert.Equal(t, "text/javascript", api.contentTypes["p/app.def.js"])

	api.putErr = errors.New("denied")
	err = store.BulkPut(t.Context(), []assets.Entry{{Key: "x"}})
	assert.ErrorContains(t, err, "put x")
}

func TestS3Store_BulkDeleteChunks(t *testing.T) {
	api := newFakeS3()
	store := NewS3Store(api, &S3Config{BucketName: "bucket"})

	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = strings.Repeat("k", i%7+1) + string(rune('a'+i%26))
		api.objects[keys[i]] = "x"
	}
	require.NoError(t, store.BulkDelete(t.Context(), keys))
	assert.Equal(t, 3, api.deleteCalls)
	assert.Empty(t, api.objects)
}

func TestS3Store_SyncEndToEnd(t *testing.T) {
	root := t.TempDir()
	for name, body := range map[string]string{"index.html": "<h1>", "a.css": "a{}"} {
		require.NoError(t, writeFile(root, name, body))
	}
	api := newFakeS3()
	api.objects["site/gone.0123456789.txt"] = "old"
	store := NewS3Store(api, &S3Config{BucketName: "bucket", Prefix: "site/"})

	engine := assets.NewEngine(assets.DefaultLimits(), nil)
	engine.Hash = assets.HashXXH64
	result, err := engine.Sync(t.Context(), assets.SyncOptions{Root: root}, assets.NewIndexProtocol(store, assets.DefaultLimits()))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, "s3_bucket:bucket/site/", result.Reference())
	assert.Len(t, api.objects, 2)
	assert.NotContains(t, api.objects, "site/gone.0123456789.txt")
}

func TestS3Store_PrefixIsADirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeFile(root, "index.html", "<h1>"))

	api := newFakeS3()
	api.objects["site-archive/keep.html"] = "other deployment"
	api.objects["site/gone.0123456789.txt"] = "old"
	cfg := &S3Config{BucketName: "bucket", Prefix: "site"}
	store := NewS3Store(api, cfg)
	assert.Equal(t, "site/", cfg.Prefix)

	engine := assets.NewEngine(assets.DefaultLimits(), nil)
	engine.Hash = assets.HashXXH64
	result, err := engine.Sync(t.Context(), assets.SyncOptions{Root: root}, assets.NewIndexProtocol(store, assets.DefaultLimits()))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, "other deployment", api.objects["site-archive/keep.html"])
	assert.NotContains(t, api.objects, "site/gone.0123456789.txt")
	for key := range api.objects {
		if key != "site-archive/keep.html" {
			assert.True(t, strings.HasPrefix(key, "site/index."), key)
		}
	}
}

func TestS3Config_NormalizesPrefix(t *testing.T) {
	for in, want := range map[string]string{"": "", "/": "", "site": "site/", "site/": "site/", "/a/b//": "a/b/"} {
		cfg := &S3Config{BucketName: "b", Prefix: in}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, want, cfg.Prefix, in)
	}
}
