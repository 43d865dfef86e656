package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudtally/cloudtally/types"
)

type stubS3 struct {
	pages []*s3.ListBucketsOutput
	calls int
	err   error
}

func (s *stubS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.pages[s.calls]
	s.calls++
	return out, nil
}

func TestS3CollectorIdentity(t *testing.T) {
	c := NewS3Collector(&stubS3{}, "us-east-1", "123456789012")
	assert.Equal(t, "s3", c.ServiceName())
	assert.Equal(t, "S3_Buckets", c.SheetName())
}

func TestS3Collect(t *testing.T) {
	created := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	stub := &stubS3{pages: []*s3.ListBucketsOutput{{
		Buckets: []s3types.Bucket{
			{Name: aws.String("prod-assets"), CreationDate: aws.Time(created)},
			{Name: aws.String("logs-archive")},
		},
	}}}
	c := NewS3Collector(stub, "us-east-1", "123456789012")

	records, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, types.Record{
		"AccountID":    "123456789012",
		"BucketName":   "prod-assets",
		"CreationDate": "2024-03-15T10:30:00Z",
	}, records[0])

	// Absent creation date maps to empty string, never a missing key.
	assert.Equal(t, "", records[1]["CreationDate"])
}

func TestS3CollectPagination(t *testing.T) {
	stub := &stubS3{pages: []*s3.ListBucketsOutput{
		{
			Buckets:           []s3types.Bucket{{Name: aws.String("bucket-a")}},
			ContinuationToken: aws.String("t1"),
		},
		{
			Buckets: []s3types.Bucket{{Name: aws.String("bucket-b")}},
		},
	}}
	c := NewS3Collector(stub, "us-east-1", "123456789012")

	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stub.calls)
	require.Len(t, records, 2)
	assert.Equal(t, "bucket-a", records[0]["BucketName"])
	assert.Equal(t, "bucket-b", records[1]["BucketName"])
}

func TestS3CollectListingFailure(t *testing.T) {
	cause := errors.New("SlowDown")
	c := NewS3Collector(&stubS3{err: cause}, "us-east-1", "123456789012")

	_, err := c.Collect(context.Background())

	var collErr *types.CollectionError
	require.ErrorAs(t, err, &collErr)
	assert.Equal(t, "s3", collErr.Service)
	require.ErrorIs(t, err, cause)
}
