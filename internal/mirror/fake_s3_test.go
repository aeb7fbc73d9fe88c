package mirror

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// An in-memory bucket with small list pages.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
	puts     []string
	gets     []string
	deletes  [][]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), pageSize: 2}
}

func etag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		data := f.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(k),
			Size: aws.Int64(int64(len(data))),
			ETag: aws.String(etag(data)),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(in.Key)
	f.gets = append(f.gets, key)
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.objects[key]))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(in.Key)
	f.puts = append(f.puts, key)
	f.objects[key] = data
	return &s3.PutObjectOutput{ETag: aws.String(etag(data))}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var batch []string
	for _, o := range in.Delete.Objects {
		key := aws.ToString(o.Key)
		batch = append(batch, key)
		delete(f.objects, key)
	}
	f.deletes = append(f.deletes, batch)
	return &s3.DeleteObjectsOutput{}, nil
}
