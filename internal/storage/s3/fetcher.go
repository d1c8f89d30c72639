// Package s3 provides a DirectoryFetcher that lists a bucket prefix as
// directory contents, suitable as the fetch function behind the
// directory cache when documents live in object storage.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dircache/dircache/pkg/pathutil"
	"github.com/dircache/dircache/pkg/types"
)

// Config represents S3 fetcher configuration
type Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	MaxKeys         int32  `yaml:"max_keys"`
}

// ListClient is the subset of the S3 API the fetcher needs.
type ListClient interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Fetcher lists directories out of a single S3 bucket. Each directory
// path maps to an object key prefix; folders come from common prefixes,
// files from the object entries directly under the prefix.
type Fetcher struct {
	client  ListClient
	bucket  string
	maxKeys int32
	logger  *slog.Logger
}

// NewFetcher creates a fetcher for the configured bucket.
func NewFetcher(ctx context.Context, cfg *Config, logger *slog.Logger) (*Fetcher, error) {
	if cfg == nil || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 fetcher requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewFetcherWithClient(client, cfg, logger), nil
}

// NewFetcherWithClient creates a fetcher around an existing client.
func NewFetcherWithClient(client ListClient, cfg *Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	return &Fetcher{
		client:  client,
		bucket:  cfg.Bucket,
		maxKeys: maxKeys,
		logger:  logger.With("component", "s3-fetcher", "bucket", cfg.Bucket),
	}
}

// Fetch lists the directory at path. It satisfies types.FetchFunc.
func (f *Fetcher) Fetch(ctx context.Context, path string) (*types.DirectoryContents, error) {
	if err := pathutil.Validate(path); err != nil {
		return nil, err
	}
	path = pathutil.Normalize(path)
	prefix := keyPrefix(path)

	contents := &types.DirectoryContents{
		Breadcrumbs: breadcrumbs(path),
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(f.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(f.maxKeys),
	}

	for {
		result, err := f.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}

		for _, cp := range result.CommonPrefixes {
			sub := aws.ToString(cp.Prefix)
			if sub == "" || sub == prefix {
				continue
			}
			name := pathutil.Base(sub)
			contents.Folders = append(contents.Folders, types.Folder{
				Name: name,
				Path: pathutil.Normalize(path + "/" + name),
			})
		}

		for _, obj := range result.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, prefix)
			// The prefix marker object for the directory itself.
			if name == "" {
				continue
			}
			contents.Files = append(contents.Files, types.File{
				Name:         name,
				Path:         pathutil.Normalize(path + "/" + name),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}

		if !aws.ToBool(result.IsTruncated) {
			break
		}
		input.ContinuationToken = result.NextContinuationToken
	}

	f.logger.Debug("listed directory",
		"path", path, "files", len(contents.Files), "folders", len(contents.Folders))
	return contents, nil
}

// keyPrefix converts a normalized directory path into an object key
// prefix: no leading slash, one trailing slash (empty for the root).
func keyPrefix(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

func breadcrumbs(path string) []types.Breadcrumb {
	crumbs := []types.Breadcrumb{{Name: "/", Path: "/"}}
	if path == "/" {
		return crumbs
	}

	current := ""
	for _, segment := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		current += "/" + segment
		crumbs = append(crumbs, types.Breadcrumb{Name: segment, Path: current})
	}
	return crumbs
}
