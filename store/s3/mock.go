package s3

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// -----------------------------------------------------------------------------
// Mock S3 Client for Testing
// -----------------------------------------------------------------------------

// MockClient is an in-memory test double for API, keyed by bucket and key.
type MockClient struct {
	mu      sync.RWMutex
	objects map[string]map[string][]byte // bucket -> key -> data

	// Call counters for test assertions.
	PutObjectCalls  int
	GetObjectCalls  int
	HeadObjectCalls int
	ListCalls       int

	// PageSize limits ListObjectsV2 pages to exercise pagination.
	// Zero returns everything in one page.
	PageSize int

	// GetObjectErr, when set, is returned by every GetObject call.
	GetObjectErr error
}

// NewMockClient creates a new mock S3 client for testing.
func NewMockClient() *MockClient {
	return &MockClient{
		objects: make(map[string]map[string][]byte),
	}
}

// Seed stores an object directly, bypassing call counters.
func (m *MockClient) Seed(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[bucket] == nil {
		m.objects[bucket] = make(map[string][]byte)
	}
	m.objects[bucket][key] = append([]byte(nil), data...)
}

// Object returns a copy of a stored object.
func (m *MockClient) Object(bucket, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[bucket][key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Keys returns every key stored in bucket.
func (m *MockClient) Keys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects[bucket]))
	for k := range m.objects[bucket] {
		keys = append(keys, k)
	}
	return keys
}

// PutObject implements API.PutObject for testing.
func (m *MockClient) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	bucket := aws.ToString(params.Bucket)
	key := aws.ToString(params.Key)
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutObjectCalls++
	if m.objects[bucket] == nil {
		m.objects[bucket] = make(map[string][]byte)
	}

	if aws.ToString(params.IfNoneMatch) == "*" {
		if _, exists := m.objects[bucket][key]; exists {
			return nil, &smithyAPIError{code: "PreconditionFailed", message: "object already exists"}
		}
	}

	m.objects[bucket][key] = data
	return &s3.PutObjectOutput{}, nil
}

// GetObject implements API.GetObject for testing.
func (m *MockClient) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	bucket := aws.ToString(params.Bucket)
	key := aws.ToString(params.Key)

	m.mu.Lock()
	m.GetObjectCalls++
	failErr := m.GetObjectErr
	data, exists := m.objects[bucket][key]
	m.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}
	if !exists {
		return nil, &types.NoSuchKey{}
	}

	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(append([]byte(nil), data...))),
	}, nil
}

// HeadObject implements API.HeadObject for testing.
func (m *MockClient) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	bucket := aws.ToString(params.Bucket)
	key := aws.ToString(params.Key)

	m.mu.Lock()
	m.HeadObjectCalls++
	data, exists := m.objects[bucket][key]
	m.mu.Unlock()

	if !exists {
		return nil, &smithyAPIError{code: "NotFound", message: "not found"}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

// DeleteObject implements API.DeleteObject for testing.
func (m *MockClient) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	delete(m.objects[aws.ToString(params.Bucket)], aws.ToString(params.Key))
	m.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 implements API.ListObjectsV2 for testing.
// Continuation tokens are the last key of the previous page.
func (m *MockClient) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	bucket := aws.ToString(params.Bucket)
	prefix := aws.ToString(params.Prefix)
	after := aws.ToString(params.ContinuationToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++

	if _, ok := m.objects[bucket]; !ok {
		return nil, &types.NoSuchBucket{}
	}

	var matched []string
	for key := range m.objects[bucket] {
		if strings.HasPrefix(key, prefix) && key > after {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)

	truncated := false
	if m.PageSize > 0 && len(matched) > m.PageSize {
		matched = matched[:m.PageSize]
		truncated = true
	}

	contents := make([]types.Object, 0, len(matched))
	for _, key := range matched {
		k := key
		contents = append(contents, types.Object{Key: &k})
	}

	out := &s3.ListObjectsV2Output{
		Contents:    contents,
		IsTruncated: aws.Bool(truncated),
	}
	if truncated {
		out.NextContinuationToken = aws.String(matched[len(matched)-1])
	}
	return out, nil
}

// smithyAPIError implements smithy.APIError for testing.
type smithyAPIError struct {
	code    string
	message string
}

func (e *smithyAPIError) Error() string {
	return e.message
}

func (e *smithyAPIError) ErrorCode() string {
	return e.code
}

func (e *smithyAPIError) ErrorMessage() string {
	return e.message
}

func (e *smithyAPIError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultUnknown
}
