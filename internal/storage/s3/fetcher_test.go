package s3

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeListClient serves canned ListObjectsV2 pages
type fakeListClient struct {
	pages []*s3.ListObjectsV2Output
	calls []*s3.ListObjectsV2Input
	err   error
}

func (f *fakeListClient) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, params)
	page := f.pages[len(f.calls)-1]
	return page, nil
}

func TestFetch(t *testing.T) {
	modified := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	client := &fakeListClient{pages: []*s3.ListObjectsV2Output{{
		CommonPrefixes: []s3types.CommonPrefix{
			{Prefix: aws.String("objekte/haus-1/vertraege/")},
			{Prefix: aws.String("objekte/haus-1/zaehler/")},
		},
		Contents: []s3types.Object{
			{Key: aws.String("objekte/haus-1/"), Size: aws.Int64(0)},
			{Key: aws.String("objekte/haus-1/grundriss.pdf"), Size: aws.Int64(2048), LastModified: aws.Time(modified)},
		},
		IsTruncated: aws.Bool(false),
	}}}

	fetcher := NewFetcherWithClient(client, &Config{Bucket: "dokumente"}, nil)

	contents, err := fetcher.Fetch(context.Background(), "/objekte/haus-1")
	require.NoError(t, err)

	require.Len(t, contents.Folders, 2)
	assert.Equal(t, "vertraege", contents.Folders[0].Name)
	assert.Equal(t, "/objekte/haus-1/vertraege", contents.Folders[0].Path)
	assert.Equal(t, "zaehler", contents.Folders[1].Name)

	require.Len(t, contents.Files, 1, "the directory marker object is skipped")
	assert.Equal(t, "grundriss.pdf", contents.Files[0].Name)
	assert.Equal(t, "/objekte/haus-1/grundriss.pdf", contents.Files[0].Path)
	assert.Equal(t, int64(2048), contents.Files[0].Size)
	assert.Equal(t, modified, contents.Files[0].LastModified)

	require.Len(t, contents.Breadcrumbs, 3)
	assert.Equal(t, "/", contents.Breadcrumbs[0].Path)
	assert.Equal(t, "/objekte", contents.Breadcrumbs[1].Path)
	assert.Equal(t, "/objekte/haus-1", contents.Breadcrumbs[2].Path)

	require.Len(t, client.calls, 1)
	assert.Equal(t, "dokumente", aws.ToString(client.calls[0].Bucket))
	assert.Equal(t, "objekte/haus-1/", aws.ToString(client.calls[0].Prefix))
	assert.Equal(t, "/", aws.ToString(client.calls[0].Delimiter))
}

func TestFetchRoot(t *testing.T) {
	client := &fakeListClient{pages: []*s3.ListObjectsV2Output{{
		CommonPrefixes: []s3types.CommonPrefix{{Prefix: aws.String("objekte/")}},
		IsTruncated:    aws.Bool(false),
	}}}

	fetcher := NewFetcherWithClient(client, &Config{Bucket: "dokumente"}, nil)

	contents, err := fetcher.Fetch(context.Background(), "/")
	require.NoError(t, err)

	require.Len(t, contents.Folders, 1)
	assert.Equal(t, "/objekte", contents.Folders[0].Path)
	assert.Equal(t, "", aws.ToString(client.calls[0].Prefix))
	require.Len(t, contents.Breadcrumbs, 1)
}

func TestFetchPagination(t *testing.T) {
	client := &fakeListClient{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []s3types.Object{{Key: aws.String("a/one.pdf"), Size: aws.Int64(1)}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("token-1"),
		},
		{
			Contents:    []s3types.Object{{Key: aws.String("a/two.pdf"), Size: aws.Int64(2)}},
			IsTruncated: aws.Bool(false),
		},
	}}

	fetcher := NewFetcherWithClient(client, &Config{Bucket: "dokumente"}, nil)

	contents, err := fetcher.Fetch(context.Background(), "/a")
	require.NoError(t, err)

	require.Len(t, contents.Files, 2)
	require.Len(t, client.calls, 2)
	assert.Equal(t, "token-1", aws.ToString(client.calls[1].ContinuationToken))
}

func TestFetchError(t *testing.T) {
	client := &fakeListClient{err: errors.New("access denied")}
	fetcher := NewFetcherWithClient(client, &Config{Bucket: "dokumente"}, nil)

	_, err := fetcher.Fetch(context.Background(), "/objekte")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/objekte")
}

func TestFetchRejectsInvalidPath(t *testing.T) {
	client := &fakeListClient{}
	fetcher := NewFetcherWithClient(client, &Config{Bucket: "dokumente"}, nil)

	_, err := fetcher.Fetch(context.Background(), "../../etc")
	require.Error(t, err)
	assert.Empty(t, client.calls, "invalid paths never reach the bucket")

	_, err = fetcher.Fetch(context.Background(), "")
	require.Error(t, err)
}

func TestNewFetcherRequiresBucket(t *testing.T) {
	_, err := NewFetcher(context.Background(), &Config{}, nil)
	assert.Error(t, err)

	_, err = NewFetcher(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "", keyPrefix("/"))
	assert.Equal(t, "objekte/", keyPrefix("/objekte"))
	assert.Equal(t, "objekte/haus-1/", keyPrefix("/objekte/haus-1"))
}
