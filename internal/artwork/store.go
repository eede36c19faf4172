// Package artwork mirrors poster and backdrop images into S3-compatible
// object storage. Native artwork URLs embed the platform auth token as a
// query parameter; mirroring strips the token from everything we persist.
package artwork

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/mediatrack/internal/config"
	"github.com/dmitrijs2005/mediatrack/internal/logging"
)

// maxImageBytes caps how much of a remote image we are willing to buffer.
const maxImageBytes = 10 << 20

// RoutePrefix is where the HTTP API serves mirrored artwork from. Catalog
// rows store stable RouteFor URLs; presigning happens per request, never at
// sync time, so stored links cannot expire.
const RoutePrefix = "/api/artwork/"

// RouteFor returns the stable URL for a mirrored object key.
func RouteFor(key string) string {
	return RoutePrefix + key
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Store uploads fetched images to a configured bucket. The zero endpoint
// disables it entirely; callers are expected to check Enabled and fall back
// to the native URL.
type Store struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     logging.Logger
}

func New(cfg *config.Config, logger logging.Logger) *Store {
	return &Store{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "artwork"),
	}
}

// Enabled reports whether object storage is configured.
func (s *Store) Enabled() bool {
	return s.cfg.S3BaseEndpoint != ""
}

func (s *Store) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.S3RootUser,
			s.cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

func (s *Store) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	return body, contentType, nil
}

// Mirror downloads the image at sourceURL and uploads it under key. The
// source URL may carry an auth token; nothing derived from it is kept.
func (s *Store) Mirror(ctx context.Context, sourceURL, key string) error {
	body, contentType, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return fmt.Errorf("error fetching artwork: %w", err)
	}

	client, err := s.getClient()
	if err != nil {
		return err
	}

	bucket := s.cfg.S3Bucket
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("error uploading artwork: %w", err)
	}

	return nil
}

// PresignGet returns a short-lived GET URL for a mirrored object.
func (s *Store) PresignGet(ctx context.Context, key string) (string, error) {
	client, err := s.getClient()
	if err != nil {
		return "", err
	}

	bucket := s.cfg.S3Bucket
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
