package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cruciblehq/shipyard/internal/config"
	"github.com/cruciblehq/shipyard/internal/paths"
)

// S3 allows at most this many keys per DeleteObjects call.
const maxDeleteBatch = 1000

// The subset of the S3 client the channel uses.
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Mirrors to a bucket prefix.
type S3 struct {
	client s3API
	Bucket string
	Prefix string // Key prefix without leading or trailing slash.
}

var _ Channel = (*S3)(nil)

// A remote object as listed.
type object struct {
	size int64
	etag string
}

// Creates an S3 channel for an s3://bucket/prefix root.
//
// Credentials come from the default AWS chain.
func NewS3(ctx context.Context, cfg config.MirrorConfig) (*S3, error) {
	bucket, prefix, err := parseS3Root(cfg.Root)
	if err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, wrap(ErrRoot, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, Bucket: bucket, Prefix: prefix}, nil
}

func parseS3Root(root string) (bucket, prefix string, err error) {
	u, err := url.Parse(root)
	if err != nil {
		return "", "", wrap(ErrRoot, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %s", ErrRoot, root)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// Returns the key prefix for a path relative to the root, with a trailing slash.
func (c *S3) keyPrefix(rel string) string {
	p := path.Join(c.Prefix, strings.Trim(rel, "/"))
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

func (c *S3) Pull(ctx context.Context, remote, local string) error {
	prefix := c.keyPrefix(remote)
	slog.Info("mirroring", "from", "s3://"+c.Bucket+"/"+prefix, "to", local)

	objects, err := c.list(ctx, prefix)
	if err != nil {
		return wrap(ErrTransfer, err)
	}
	for rel := range objects {
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return wrap(ErrTransfer, fmt.Errorf("key %q escapes %s", prefix+rel, local))
		}
	}
	files, err := walkFiles(local)
	if err != nil {
		return wrap(ErrTransfer, err)
	}
	if err := os.MkdirAll(local, paths.DefaultDirMode); err != nil {
		return wrap(ErrTransfer, err)
	}

	for _, rel := range sortedKeys(objects) {
		dst := filepath.Join(local, filepath.FromSlash(rel))
		if _, ok := files[rel]; ok && unchanged(dst, files[rel].Size(), objects[rel]) {
			continue
		}
		if err := c.download(ctx, prefix+rel, dst); err != nil {
			return wrap(ErrTransfer, err)
		}
	}

	for _, rel := range sortedKeys(files) {
		if _, ok := objects[rel]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(local, filepath.FromSlash(rel))); err != nil {
			return wrap(ErrTransfer, err)
		}
	}
	if err := pruneEmptyDirs(local); err != nil {
		return wrap(ErrTransfer, err)
	}
	return nil
}

func (c *S3) Push(ctx context.Context, local, remote string) error {
	prefix := c.keyPrefix(remote)
	slog.Info("mirroring", "from", local, "to", "s3://"+c.Bucket+"/"+prefix)

	files, err := walkFiles(local)
	if err != nil {
		return wrap(ErrTransfer, err)
	}
	objects, err := c.list(ctx, prefix)
	if err != nil {
		return wrap(ErrTransfer, err)
	}

	for _, rel := range sortedKeys(files) {
		src := filepath.Join(local, filepath.FromSlash(rel))
		if obj, ok := objects[rel]; ok && unchanged(src, files[rel].Size(), obj) {
			continue
		}
		if err := c.upload(ctx, src, prefix+rel); err != nil {
			return wrap(ErrTransfer, err)
		}
	}

	var stale []string
	for _, rel := range sortedKeys(objects) {
		if _, ok := files[rel]; !ok {
			stale = append(stale, prefix+rel)
		}
	}
	if err := c.deleteKeys(ctx, stale); err != nil {
		return wrap(ErrTransfer, err)
	}
	return nil
}

// Lists objects under prefix keyed by the remainder of the key.
func (c *S3) list(ctx context.Context, prefix string) (map[string]object, error) {
	objects := make(map[string]object)
	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.Bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", c.Bucket, prefix, err)
		}
		for _, o := range page.Contents {
			key := aws.ToString(o.Key)
			rel := strings.TrimPrefix(key, prefix)
			if rel == "" || strings.HasSuffix(rel, "/") {
				continue
			}
			objects[rel] = object{
				size: aws.ToInt64(o.Size),
				etag: strings.Trim(aws.ToString(o.ETag), `"`),
			}
		}
	}
	return objects, nil
}

// Compares by size, then by MD5 when the ETag is a plain digest.
//
// Multipart ETags contain a dash and are not content hashes; those
// objects are treated as changed.
func unchanged(localPath string, size int64, obj object) bool {
	if size != obj.size || obj.etag == "" || strings.Contains(obj.etag, "-") {
		return false
	}
	sum, err := fileMD5(localPath)
	return err == nil && sum == obj.etag
}

func (c *S3) download(ctx context.Context, key, dst string) error {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("getting %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), paths.DefaultDirMode); err != nil {
		return err
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	slog.Debug("downloaded", "key", key)
	return f.Close()
}

func (c *S3) upload(ctx context.Context, src, key string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	slog.Debug("uploaded", "key", key)
	return nil
}

// Deletes keys in batches, failing on the first batch with errors.
func (c *S3) deleteKeys(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		batch := keys[start:min(start+maxDeleteBatch, len(keys))]

		ids := make([]types.ObjectIdentifier, len(batch))
		for i, k := range batch {
			ids[i] = types.ObjectIdentifier{Key: aws.String(k)}
		}

		out, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.Bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("deleting %d objects: %w", len(batch), err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("deleting %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
		}
		slog.Debug("deleted stale objects", "count", len(batch))
	}
	return nil
}
