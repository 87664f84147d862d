package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes an S3 compatible bucket
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// NewS3Client builds an s3 client with static credentials
func NewS3Client(cfg S3Config) *s3.Client {
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
				Source:          "smartshop",
			}, nil
		}),
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
}

// S3 archives records as objects in a bucket
type S3 struct {
	bucket string
	prefix string
	client *s3.Client
}

var _ Archive = (*S3)(nil)

// S3Option configures S3
type S3Option func(*S3)

func WithS3Bucket(bucket string) S3Option {
	return func(s *S3) {
		s.bucket = bucket
	}
}

func WithS3Prefix(prefix string) S3Option {
	return func(s *S3) {
		s.prefix = prefix
	}
}

func WithS3Client(clt *s3.Client) S3Option {
	return func(s *S3) {
		s.client = clt
	}
}

// NewS3 returns a bucket archive
func NewS3(opts ...S3Option) (*S3, error) {
	ret := new(S3)
	for _, opt := range opts {
		opt(ret)
	}
	if ret.bucket == "" {
		return nil, fmt.Errorf("s3 archive requires a bucket")
	}
	if ret.client == nil {
		return nil, fmt.Errorf("s3 archive requires a client")
	}
	return ret, nil
}

// Put implements Archive
func (s *S3) Put(ctx context.Context, rec *Record) (string, error) {
	bs, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	key := path.Join(s.prefix, rec.Name())
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(bs),
		ContentLength: aws.Int64(int64(len(bs))),
		ContentType:   aws.String("application/json"),
	}); err != nil {
		return "", fmt.Errorf("put receipt archive: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
