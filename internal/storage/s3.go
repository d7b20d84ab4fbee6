// Package storage archives voice clips in an S3-compatible bucket and hands
// out short-lived presigned download URLs.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// AudioStore is the archive used by the transcription and olive branch flows.
type AudioStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// Options configures an S3 client.
type Options struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	PresignTTL     time.Duration
}

// S3 is a thin wrapper around the AWS SDK v2 S3 client.
type S3 struct {
	api     *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

// NewS3 builds a client with static credentials against opts.Endpoint.
func NewS3(ctx context.Context, opts Options) (*S3, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("storage: endpoint is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, errors.New("storage: access key and secret key are required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &S3{
		api:     client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
		ttl:     ttl,
	}, nil
}

// Put uploads data with a SHA-256 checksum.
func (c *S3) Put(ctx context.Context, key, contentType string, data []byte) error {
	if c == nil {
		return errors.New("nil client")
	}
	sum := sha256.Sum256(data)
	checksum := base64.StdEncoding.EncodeToString(sum[:])
	size := int64(len(data))

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(c.bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(data),
		ContentLength:     &size,
		ContentType:       aws.String(contentType),
		ChecksumAlgorithm: s3types.ChecksumAlgorithmSha256,
		ChecksumSHA256:    &checksum,
	})
	return err
}

// PresignGet generates a presigned GET URL valid for the configured TTL.
func (c *S3) PresignGet(ctx context.Context, key string) (string, error) {
	if c == nil {
		return "", errors.New("nil client")
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = c.ttl
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// AudioKey builds the object key for a clip uploaded by profileID.
func AudioKey(profileID, contentType string, now time.Time) string {
	return path.Join("voice", profileID, now.UTC().Format("2006/01/02"), fmt.Sprintf("%s%s", uuid.NewString(), Ext(contentType)))
}

// Ext maps an audio content type to a file extension.
func Ext(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	default:
		return ".bin"
	}
}
