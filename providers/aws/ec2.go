package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudtally/cloudtally/types"
)

// EC2Collector inventories compute instances.
type EC2Collector struct {
	client    ec2.DescribeInstancesAPIClient
	region    string
	accountID string
}

// NewEC2Collector creates an EC2 collector for one account and region.
func NewEC2Collector(client ec2.DescribeInstancesAPIClient, region, accountID string) *EC2Collector {
	return &EC2Collector{client: client, region: region, accountID: accountID}
}

func (c *EC2Collector) ServiceName() string { return ServiceEC2 }
func (c *EC2Collector) SheetName() string   { return "EC2_Instances" }

// Collect lists all instances in the region, one record per instance.
func (c *EC2Collector) Collect(ctx context.Context) ([]types.Record, error) {
	paginator := ec2.NewDescribeInstancesPaginator(c.client, &ec2.DescribeInstancesInput{})

	var records []types.Record
	pages := 0
	for paginator.HasMorePages() {
		if pages++; pages > maxPages {
			return nil, collectionError(ServiceEC2, c.accountID, c.region, errPaginationCap())
		}
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, collectionError(ServiceEC2, c.accountID, c.region, err)
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				records = append(records, buildInstanceRecord(instance, c.accountID))
			}
		}
	}

	return records, nil
}

// buildInstanceRecord normalizes one instance into the flat field set.
func buildInstanceRecord(instance ec2types.Instance, accountID string) types.Record {
	var az string
	if instance.Placement != nil {
		az = aws.ToString(instance.Placement.AvailabilityZone)
	}

	// The API reports Platform only for Windows; everything else is Linux.
	platform := "Linux"
	if instance.Platform != "" {
		platform = string(instance.Platform)
	}

	return types.Record{
		"AccountID":        accountID,
		"AvailabilityZone": az,
		"InstanceID":       aws.ToString(instance.InstanceId),
		"Name":             nameTag(instance.Tags),
		"Platform":         platform,
		"PrivateIPAddress": aws.ToString(instance.PrivateIpAddress),
		"PublicIPAddress":  aws.ToString(instance.PublicIpAddress),
	}
}
