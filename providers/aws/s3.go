package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cloudtally/cloudtally/types"
)

// S3Collector inventories object storage buckets. S3 is a global service;
// the orchestrator schedules it once per account at the default region.
type S3Collector struct {
	client    s3.ListBucketsAPIClient
	region    string
	accountID string
}

// NewS3Collector creates an S3 collector for one account.
func NewS3Collector(client s3.ListBucketsAPIClient, region, accountID string) *S3Collector {
	return &S3Collector{client: client, region: region, accountID: accountID}
}

func (c *S3Collector) ServiceName() string { return ServiceS3 }
func (c *S3Collector) SheetName() string   { return "S3_Buckets" }

// Collect lists all buckets owned by the account.
func (c *S3Collector) Collect(ctx context.Context) ([]types.Record, error) {
	paginator := s3.NewListBucketsPaginator(c.client, &s3.ListBucketsInput{})

	var records []types.Record
	pages := 0
	for paginator.HasMorePages() {
		if pages++; pages > maxPages {
			return nil, collectionError(ServiceS3, c.accountID, c.region, errPaginationCap())
		}
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, collectionError(ServiceS3, c.accountID, c.region, err)
		}

		for _, bucket := range output.Buckets {
			records = append(records, types.Record{
				"AccountID":    c.accountID,
				"BucketName":   aws.ToString(bucket.Name),
				"CreationDate": formatTime(bucket.CreationDate),
			})
		}
	}

	return records, nil
}
