// Package s3 implements objectstore.Client on Amazon S3 and S3-compatible
// services using aws-sdk-go-v2.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/objectstore"
)

func init() {
	objectstore.RegisterFactory(objectstore.ProviderS3, func(ctx context.Context, cfg objectstore.Config, log *logger.Logger) (objectstore.Client, error) {
		return NewClient(ctx, cfg.S3, log)
	})
}

// Client implements objectstore.Client on S3.
type Client struct {
	api    *awss3.Client
	bucket string
	log    *logger.Logger
}

var (
	_ objectstore.Client = (*Client)(nil)
	_ objectstore.Pinger = (*Client)(nil)
)

// NewClient creates an S3 client from the given config.
func NewClient(ctx context.Context, cfg objectstore.S3Config, log *logger.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("objectstore: s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = objectstore.DefaultRegion
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			// Flexible checksums only where the operation requires them.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})
	return &Client{api: api, bucket: cfg.Bucket, log: log}, nil
}

// CreateMultipartUpload starts a multipart upload for key in the bucket.
func (c *Client) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	in := &awss3.CreateMultipartUploadInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	out, err := c.api.CreateMultipartUpload(ctx, in)
	if err != nil {
		return "", translate("create multipart upload", err)
	}
	return aws.ToString(out.UploadId), nil
}

// UploadPart sends body as part number of the upload and returns its ETag.
func (c *Client) UploadPart(ctx context.Context, key, uploadID string, number int32, body []byte) (string, error) {
	out, err := c.api.UploadPart(ctx, &awss3.UploadPartInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(number),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", translate("upload part", err)
	}
	return aws.ToString(out.ETag), nil
}

// CompleteMultipartUpload assembles parts and returns the object location,
// falling back to the bucket URL when the service omits one.
func (c *Client) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []objectstore.Part) (string, error) {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.Number),
		}
	}
	out, err := c.api.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return "", translate("complete multipart upload", err)
	}
	c.log.Debug("multipart upload assembled", map[string]interface{}{
		logger.FieldObjectKey: key,
		logger.FieldUploadID:  uploadID,
		logger.FieldPartCount: len(parts),
	})
	if loc := aws.ToString(out.Location); loc != "" {
		return loc, nil
	}
	return c.objectURL(key), nil
}

// AbortMultipartUpload cancels the upload and frees its stored parts.
func (c *Client) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := c.api.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return translate("abort multipart upload", err)
	}
	return nil
}

// HeadObject returns the object size and content type.
func (c *Client) HeadObject(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	out, err := c.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return objectstore.ObjectInfo{}, translate("head object", err)
	}
	return objectstore.ObjectInfo{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

// GetObjectRange fetches bytes start through end inclusive.
func (c *Client) GetObjectRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return nil, translate("get object", err)
	}
	return out.Body, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return translate("head bucket", err)
	}
	return nil
}

func (c *Client) objectURL(key string) string {
	opts := c.api.Options()
	escaped := (&url.URL{Path: key}).EscapedPath()
	if opts.BaseEndpoint != nil && *opts.BaseEndpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(*opts.BaseEndpoint, "/"), c.bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, opts.Region, escaped)
}

// translate maps S3 API error codes onto objectstore sentinels and keeps
// the original error in the chain.
func translate(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("objectstore: s3 %s: %w: %w", op, objectstore.ErrNotFound, err)
		case "NoSuchUpload":
			return fmt.Errorf("objectstore: s3 %s: %w: %w", op, objectstore.ErrNoSuchUpload, err)
		case "InvalidRange":
			return fmt.Errorf("objectstore: s3 %s: %w: %w", op, objectstore.ErrInvalidRange, err)
		case "InvalidPart", "InvalidPartOrder", "EntityTooSmall", "MalformedXML":
			return fmt.Errorf("objectstore: s3 %s: %w: %w", op, objectstore.ErrInvalidPart, err)
		}
	}
	return fmt.Errorf("objectstore: s3 %s: %w", op, err)
}
