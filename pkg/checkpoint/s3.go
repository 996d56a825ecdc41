package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// NewS3Store configures an S3 client and returns a Store for the given bucket.
func NewS3Store(bucket, region string) *S3Store {
	awsSession := session.Must(session.NewSession())
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	return NewS3StoreWithClient(s3.New(awsSession, cfg), bucket)
}

// NewS3StoreWithClient returns a Store using an existing S3 client.
func NewS3StoreWithClient(client s3iface.S3API, bucket string) *S3Store {
	return &S3Store{
		Bucket: bucket,
		s3:     client,
	}
}

// S3Store is an S3 backed Store.
type S3Store struct {
	Bucket string
	s3     s3iface.S3API
}

// S3Store must implement the Store interface
var _ Store = &S3Store{}

// Download retrieves the object stored under key. Missing keys are reported
// as ErrNotFound so they can be told apart from an unreachable bucket.
func (s *S3Store) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 's3://%s/%s'", ErrNotFound, s.Bucket, key)
		}
		return nil, fmt.Errorf("failed to retrieve 's3://%s/%s': %v", s.Bucket, key, err)
	}
	defer out.Body.Close()

	data, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body from S3 response for 's3://%s/%s': %v", s.Bucket, key, err)
	}
	return data, nil
}

// Upload stores data under key, overwriting any existing object.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte) error {
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload 's3://%s/%s': %v", s.Bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	aerr, ok := err.(awserr.Error)
	if !ok {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return false
}
