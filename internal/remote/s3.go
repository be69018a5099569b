// Package remote implements the storage client boundary over an
// S3-compatible object store. Remote "folders" are key prefixes; a file's
// remote id is its object key. Content hashes come from plain-upload ETags
// (an MD5); multipart ETags are not content hashes, so those objects are
// reported unhashable.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hashmirror/hashmirror/internal/mirror"
)

const hashCacheSize = 8192

// S3Client implements mirror.StorageClient against one bucket.
type S3Client struct {
	s3     *s3.Client
	bucket string
	hashes *lru.Cache[string, string]
}

var _ mirror.StorageClient = (*S3Client)(nil)

// NewS3Client builds a client from static credentials.
func NewS3Client(ctx context.Context, cfg *S3Config) (*S3Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
		Timeout: 60 * time.Second,
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(httpClient),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	cache, err := lru.New[string, string](hashCacheSize)
	if err != nil {
		return nil, err
	}

	return &S3Client{s3: client, bucket: cfg.Bucket, hashes: cache}, nil
}

func NewS3ClientWith(client *s3.Client, bucket string) (*S3Client, error) {
	cache, err := lru.New[string, string](hashCacheSize)
	if err != nil {
		return nil, err
	}
	return &S3Client{s3: client, bucket: bucket, hashes: cache}, nil
}

// folderPrefix normalizes a remote folder reference into a key prefix.
func folderPrefix(folder string) string {
	p := strings.Trim(folder, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// keyPath is how a key appears in records: rooted, for prefix ranking.
func keyPath(key string) string {
	return "/" + key
}

// List enumerates the objects under a folder prefix. Without recursive,
// nested "subfolders" are cut off with a delimiter.
func (c *S3Client) List(ctx context.Context, folder string, recursive bool) ([]*mirror.FileRecord, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: &c.bucket,
		Prefix: aws.String(folderPrefix(folder)),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var records []*mirror.FileRecord
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue // folder placeholder object
			}
			records = append(records, &mirror.FileRecord{
				Path:     keyPath(key),
				Hash:     etagToHash(aws.ToString(obj.ETag)),
				Size:     aws.ToInt64(obj.Size),
				RemoteID: key,
				Class:    mirror.ClassifyPath(key),
			})
		}
	}
	return records, nil
}

// GetHash returns the content hash of an object, consulting a small cache
// first. Objects uploaded multipart have no usable hash.
func (c *S3Client) GetHash(ctx context.Context, fileID string) (string, error) {
	if hash, ok := c.hashes.Get(fileID); ok {
		if hash == "" {
			return "", mirror.ErrNoHash
		}
		return hash, nil
	}

	rec, err := c.Stat(ctx, fileID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", mirror.Permanent("head", fmt.Errorf("object %s not found", fileID))
	}

	c.hashes.Add(fileID, rec.Hash)
	if rec.Hash == "" {
		return "", mirror.ErrNoHash
	}
	return rec.Hash, nil
}

// Stat returns the record for an object, or nil when it does not exist.
func (c *S3Client) Stat(ctx context.Context, fileID string) (*mirror.FileRecord, error) {
	resp, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &c.bucket,
		Key:    &fileID,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("head", err)
	}

	return &mirror.FileRecord{
		Path:     keyPath(fileID),
		Hash:     etagToHash(aws.ToString(resp.ETag)),
		Size:     aws.ToInt64(resp.ContentLength),
		RemoteID: fileID,
		Class:    mirror.ClassifyPath(fileID),
	}, nil
}

// Upload puts a local file under destFolder/name and returns the new key.
func (c *S3Client) Upload(ctx context.Context, localPath, destFolder, name string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", mirror.Permanent("upload", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", mirror.Permanent("upload", err)
	}

	key := folderPrefix(destFolder) + name
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &key,
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", classify("upload", err)
	}
	return key, nil
}

// Copy duplicates an existing object into destFolder/name server side.
func (c *S3Client) Copy(ctx context.Context, fileID, destFolder, name string) (string, error) {
	key := folderPrefix(destFolder) + name
	_, err := c.s3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &c.bucket,
		Key:        &key,
		CopySource: aws.String(c.bucket + "/" + fileID),
	})
	if err != nil {
		return "", classify("copy", err)
	}
	return key, nil
}

// Delete removes an object. A missing object reports success.
func (c *S3Client) Delete(ctx context.Context, fileID string) (bool, error) {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &c.bucket,
		Key:    &fileID,
	})
	if err != nil {
		if isNotFound(err) {
			return true, nil
		}
		return false, classify("delete", err)
	}
	c.hashes.Remove(fileID)
	return true, nil
}

// etagToHash strips ETag quoting and rejects multipart ETags, which carry a
// part-count suffix and are not an MD5 of the content.
func etagToHash(etag string) string {
	etag = strings.Trim(etag, `"`)
	if etag == "" || strings.Contains(etag, "-") {
		return ""
	}
	return etag
}
