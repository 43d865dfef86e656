package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudtally/cloudtally/types"
)

type stubEC2 struct {
	pages []*ec2.DescribeInstancesOutput
	calls int
	err   error
}

func (s *stubEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.pages[s.calls]
	s.calls++
	return out, nil
}

func instancePage(token string, ids ...string) *ec2.DescribeInstancesOutput {
	instances := make([]ec2types.Instance, len(ids))
	for i, id := range ids {
		instances[i] = ec2types.Instance{InstanceId: aws.String(id)}
	}
	out := &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: instances}},
	}
	if token != "" {
		out.NextToken = aws.String(token)
	}
	return out
}

func TestEC2CollectorIdentity(t *testing.T) {
	c := NewEC2Collector(&stubEC2{}, "us-east-1", "123456789012")
	assert.Equal(t, "ec2", c.ServiceName())
	assert.Equal(t, "EC2_Instances", c.SheetName())
}

func TestEC2CollectPagination(t *testing.T) {
	// Two continuation tokens, then none: exactly three calls.
	stub := &stubEC2{pages: []*ec2.DescribeInstancesOutput{
		instancePage("t1", "i-001", "i-002"),
		instancePage("t2", "i-003"),
		instancePage("", "i-004"),
	}}
	c := NewEC2Collector(stub, "us-east-1", "123456789012")

	records, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stub.calls)
	require.Len(t, records, 4)
	assert.Equal(t, "i-001", records[0]["InstanceID"])
	assert.Equal(t, "i-004", records[3]["InstanceID"])
}

// loopingEC2 mimics a server whose continuation token never drains.
type loopingEC2 struct {
	calls int
}

func (s *loopingEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	s.calls++
	return instancePage("again", "i-same"), nil
}

func TestEC2CollectPaginationCap(t *testing.T) {
	stub := &loopingEC2{}
	c := NewEC2Collector(stub, "us-east-1", "123456789012")

	_, err := c.Collect(context.Background())

	var collErr *types.CollectionError
	require.ErrorAs(t, err, &collErr)
	assert.Contains(t, collErr.Err.Error(), "pagination exceeded")
	// The cap trips before issuing call maxPages+1.
	assert.Equal(t, maxPages, stub.calls)
}

func TestEC2CollectIdempotent(t *testing.T) {
	pages := func() *stubEC2 {
		return &stubEC2{pages: []*ec2.DescribeInstancesOutput{instancePage("", "i-001", "i-002")}}
	}

	first, err := NewEC2Collector(pages(), "us-east-1", "1").Collect(context.Background())
	require.NoError(t, err)
	second, err := NewEC2Collector(pages(), "us-east-1", "1").Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEC2CollectListingFailure(t *testing.T) {
	cause := errors.New("RequestLimitExceeded")
	c := NewEC2Collector(&stubEC2{err: cause}, "us-east-1", "123456789012")

	_, err := c.Collect(context.Background())

	var collErr *types.CollectionError
	require.ErrorAs(t, err, &collErr)
	assert.Equal(t, "ec2", collErr.Service)
	assert.Equal(t, "123456789012", collErr.AccountID)
	assert.Equal(t, "us-east-1", collErr.Region)
	require.ErrorIs(t, err, cause)
}

func TestBuildInstanceRecord(t *testing.T) {
	t.Run("fully populated instance", func(t *testing.T) {
		instance := ec2types.Instance{
			InstanceId:       aws.String("i-0abc123def"),
			Platform:         ec2types.PlatformValuesWindows,
			PrivateIpAddress: aws.String("10.0.1.15"),
			PublicIpAddress:  aws.String("54.1.2.3"),
			Placement:        &ec2types.Placement{AvailabilityZone: aws.String("us-east-1a")},
			Tags: []ec2types.Tag{
				{Key: aws.String("Team"), Value: aws.String("platform")},
				{Key: aws.String("Name"), Value: aws.String("web-01")},
			},
		}

		record := buildInstanceRecord(instance, "123456789012")

		assert.Equal(t, "123456789012", record["AccountID"])
		assert.Equal(t, "us-east-1a", record["AvailabilityZone"])
		assert.Equal(t, "i-0abc123def", record["InstanceID"])
		assert.Equal(t, "web-01", record["Name"])
		assert.Equal(t, "windows", record["Platform"])
		assert.Equal(t, "10.0.1.15", record["PrivateIPAddress"])
		assert.Equal(t, "54.1.2.3", record["PublicIPAddress"])
	})

	t.Run("bare instance maps absent fields to empty strings", func(t *testing.T) {
		record := buildInstanceRecord(ec2types.Instance{}, "123456789012")

		// Every field of the variant is present, absent values are "".
		for _, field := range []string{"AccountID", "AvailabilityZone", "InstanceID", "Name", "Platform", "PrivateIPAddress", "PublicIPAddress"} {
			_, ok := record[field]
			assert.True(t, ok, "missing field %s", field)
		}
		assert.Equal(t, "", record["InstanceID"])
		assert.Equal(t, "", record["Name"])
		assert.Equal(t, "Linux", record["Platform"])
	})
}
