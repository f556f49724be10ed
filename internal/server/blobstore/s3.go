package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/filegilla/filegateway/internal/common"
)

// Seams for tests.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Settings holds the connection parameters for the S3-compatible backend.
type Settings struct {
	RootUser     string
	RootPassword string
	Region       string
	BaseEndpoint string
}

// S3Store implements ObjectStore over an S3-compatible backend (MinIO in
// development). Buckets are addressed path-style so a local endpoint works
// without wildcard DNS.
type S3Store struct {
	client  *s3.Client
	baseURL string
}

func NewS3Store(ctx context.Context, settings Settings) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(settings.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			settings.RootUser,
			settings.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(settings.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Store{
		client:  client,
		baseURL: strings.TrimRight(settings.BaseEndpoint, "/"),
	}, nil
}

func (s *S3Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, s.wrap("head bucket", err)
	}
	return true, nil
}

func (s *S3Store) CreateBucket(ctx context.Context, bucket string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return fmt.Errorf("%w: bucket %s", common.ErrorConflict, bucket)
		}
		return s.wrap("create bucket", err)
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(bucket),
		Key:                aws.String(key),
		Body:               body,
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("inline; filename=" + key),
	})
	if err != nil {
		return s.wrap("put object", err)
	}
	return nil
}

func (s *S3Store) Head(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: object %s", common.ErrorNotFound, key)
		}
		return nil, s.wrap("head object", err)
	}

	return &ObjectInfo{
		Name:         key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     out.Metadata,
		ContentHash:  trimETag(aws.ToString(out.ETag)),
	}, nil
}

func (s *S3Store) List(ctx context.Context, bucket string) ([]ObjectInfo, error) {
	infos := make([]ObjectInfo, 0)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: bucket %s", common.ErrorNotFound, bucket)
			}
			return nil, s.wrap("list objects", err)
		}
		for _, item := range page.Contents {
			// Content type and user metadata are only available per object.
			info, err := s.Head(ctx, bucket, aws.ToString(item.Key))
			if err != nil {
				return nil, err
			}
			infos = append(infos, *info)
		}
	}

	return infos, nil
}

func (s *S3Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	source := srcBucket + "/" + url.PathEscape(srcKey)
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(source),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: source object %s", common.ErrorNotFound, srcKey)
		}
		return s.wrap("copy object", err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, key string) (bool, error) {
	// DeleteObject succeeds whether or not the key exists, so probe first to
	// report whether anything was actually removed.
	if _, err := s.Head(ctx, bucket, key); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, s.wrap("delete object", err)
	}
	return true, nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("%w: object %s", common.ErrorNotFound, key)
		}
		return nil, nil, s.wrap("get object", err)
	}

	info := &ObjectInfo{
		Name:         key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     out.Metadata,
		ContentHash:  trimETag(aws.ToString(out.ETag)),
	}
	return out.Body, info, nil
}

func (s *S3Store) ObjectURL(bucket, key string) string {
	return s.baseURL + "/" + bucket + "/" + url.PathEscape(key)
}

func (s *S3Store) wrap(op string, err error) error {
	status := 0
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		status = re.HTTPStatusCode()
	}
	return common.Upstream("s3", op, status, err)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsb *types.NoSuchBucket
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsb) || errors.As(err, &nsk) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchKey":
			return true
		}
	}
	return false
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}
