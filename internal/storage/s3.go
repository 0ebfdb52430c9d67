package storage

import (
	"bytes"
	"context"
	"errors"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/billscan/internal/config"
)

// objectAPI is the slice of the S3 client the store uses.
type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store files bills in an S3-compatible bucket.
type S3Store struct {
	client objectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3 builds an S3Store from cfg. Static keys and a custom endpoint (R2,
// MinIO) are used when set; otherwise the default AWS credential chain is.
func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, eris.New("storage: s3 backend requires a bucket")
	}

	var client *s3.Client
	if cfg.AccessKeyID != "" {
		opts := s3.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		}
		if cfg.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Endpoint)
			opts.UsePathStyle = true
		}
		client = s3.New(opts)
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, eris.Wrap(err, "storage: load aws config")
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}

	return newS3Store(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(client objectAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// WithNow fixes the clock used for collision suffixes.
func (s *S3Store) WithNow(t time.Time) *S3Store {
	s.now = func() time.Time { return t }
	return s
}

// Save implements Storage. The returned location is an s3:// URI.
func (s *S3Store) Save(ctx context.Context, key Key, content []byte) (string, error) {
	objectKey := path.Join(s.prefix, Path(key))

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	var notFound *types.NotFound
	switch {
	case err == nil && aws.ToInt64(head.ContentLength) == int64(len(content)):
		zap.L().Info("storage: bill already filed", zap.String("key", objectKey))
		return s.uri(objectKey), nil
	case err == nil:
		objectKey = withTimestamp(objectKey, s.now())
	case !errors.As(err, &notFound):
		return "", eris.Wrapf(err, "storage: head %s", objectKey)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(mimetype.Detect(content).String()),
	})
	if err != nil {
		return "", eris.Wrapf(err, "storage: put %s", objectKey)
	}
	zap.L().Info("storage: filed bill", zap.String("key", objectKey), zap.Int("bytes", len(content)))
	return s.uri(objectKey), nil
}

func (s *S3Store) uri(key string) string {
	return "s3://" + s.bucket + "/" + key
}
