package awstest

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

func NewMockS3() *MockS3 {
	return &MockS3{
		buckets: map[string]map[string][]byte{},
	}
}

// MockS3 mimics an S3 blob store for testing.
type MockS3 struct {
	sync.RWMutex
	buckets map[string]map[string][]byte
	s3iface.S3API

	// GetErr and PutErr, when set, are returned by every read or write.
	GetErr error
	PutErr error
}

func (m *MockS3) NewBucket(name string) {
	m.Lock()
	defer m.Unlock()
	m.buckets[name] = map[string][]byte{}
}

// Object returns the contents stored under key, if any.
func (m *MockS3) Object(bucket, key string) ([]byte, bool) {
	m.RLock()
	defer m.RUnlock()
	data, ok := m.buckets[bucket][key]
	return data, ok
}

func (m *MockS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	return m.PutObject(in)
}

func (m *MockS3) PutObject(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	if m.PutErr != nil {
		return nil, m.PutErr
	}
	if in.Body == nil {
		return nil, errors.New("no body")
	}
	data, err := ioutil.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	m.Lock()
	defer m.Unlock()

	bucket, ok := m.buckets[*in.Bucket]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchBucket, fmt.Sprintf("bucket '%s' does not exist", *in.Bucket), nil)
	}

	bucket[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *MockS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	return m.GetObject(in)
}

func (m *MockS3) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.RLock()
	defer m.RUnlock()

	bucket, ok := m.buckets[*in.Bucket]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchBucket, fmt.Sprintf("bucket '%s' does not exist", *in.Bucket), nil)
	}

	data, ok := bucket[*in.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, fmt.Sprintf("key '%s' does not exist in bucket '%s'", *in.Key, *in.Bucket), nil)
	}

	return &s3.GetObjectOutput{
		Body: ioutil.NopCloser(bytes.NewBuffer(data)),
	}, nil
}
