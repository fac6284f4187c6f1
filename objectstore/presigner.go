// Package objectstore generates short-lived access URLs for files held in an
// S3-compatible object store (MinIO in production).
package objectstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// ErrEmptyPath is returned when a file path resolves to no object key.
var ErrEmptyPath = errors.New("empty object path")

// Config holds connection settings for the object store.
type Config struct {
	// Endpoint is the store URL, e.g. http://minio:9000.
	Endpoint string `json:"endpoint" schema:"type:string,description:Object store endpoint URL,category:basic,default:http://localhost:9000"`

	// Region is the signing region; MinIO accepts any value.
	Region string `json:"region" schema:"type:string,description:Signing region,category:advanced,default:us-east-1"`

	// AccessKey and SecretKey are static credentials.
	AccessKey string `json:"access_key" schema:"type:string,description:Access key,category:basic"`
	SecretKey string `json:"secret_key" schema:"type:string,description:Secret key,category:basic"`

	// Bucket is the default bucket. When empty the first path segment
	// is taken as the bucket name.
	Bucket string `json:"bucket" schema:"type:string,description:Default bucket,category:basic,default:gridcapa"`

	// PathStyle forces bucket-in-path addressing (required by MinIO).
	// Unset means true.
	PathStyle *bool `json:"path_style,omitempty" schema:"type:bool,description:Use path-style addressing,category:advanced,default:true"`
}

// DefaultConfig returns settings for a local MinIO.
func DefaultConfig() Config {
	return Config{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		Bucket:    "gridcapa",
		PathStyle: aws.Bool(true),
	}
}

// WithDefaults returns c with every unset field taken from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Region == "" {
		c.Region = d.Region
	}
	if c.Bucket == "" {
		c.Bucket = d.Bucket
	}
	if c.PathStyle == nil {
		c.PathStyle = d.PathStyle
	}
	return c
}

// UsePathStyle reports whether bucket-in-path addressing is used.
func (c Config) UsePathStyle() bool {
	return c.PathStyle == nil || *c.PathStyle
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("object_store.endpoint is required")
	}
	if c.Region == "" {
		return fmt.Errorf("object_store.region is required")
	}
	return nil
}

// Presigner signs GET URLs for stored files.
type Presigner struct {
	client *s3.S3
	bucket string
}

// NewPresigner creates a Presigner. No network call is made.
func NewPresigner(cfg Config) (*Presigner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg := &aws.Config{
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.UsePathStyle()),
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create object store session: %w", err)
	}

	return &Presigner{
		client: s3.New(sess),
		bucket: cfg.Bucket,
	}, nil
}

// GenerateURL returns a presigned GET URL for the file at path, valid for
// expiryHours hours.
func (p *Presigner) GenerateURL(path string, expiryHours int) (string, error) {
	if expiryHours <= 0 {
		return "", fmt.Errorf("expiry must be positive, got %d hours", expiryHours)
	}

	bucket, key, err := p.resolve(path)
	if err != nil {
		return "", err
	}

	req, _ := p.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(time.Duration(expiryHours) * time.Hour)
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return url, nil
}

// resolve splits a full path into bucket and key.
func (p *Presigner) resolve(path string) (bucket, key string, err error) {
	trimmed := strings.TrimLeft(path, "/")

	if p.bucket != "" {
		key = strings.TrimPrefix(trimmed, p.bucket+"/")
		if key == "" {
			return "", "", fmt.Errorf("%w: %q", ErrEmptyPath, path)
		}
		return p.bucket, key, nil
	}

	bucket, key, _ = strings.Cut(trimmed, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrEmptyPath, path)
	}
	return bucket, key, nil
}
