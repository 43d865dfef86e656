package aws

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/cloudtally/cloudtally/telemetry"
	"github.com/cloudtally/cloudtally/types"
)

// RDSAPI is the slice of the RDS API the collector needs: the paginated
// instance listing plus the per-instance tag lookup.
type RDSAPI interface {
	rds.DescribeDBInstancesAPIClient
	ListTagsForResource(ctx context.Context, params *rds.ListTagsForResourceInput, optFns ...func(*rds.Options)) (*rds.ListTagsForResourceOutput, error)
}

// RDSCollector inventories managed database instances.
type RDSCollector struct {
	client    RDSAPI
	region    string
	accountID string
	logger    *telemetry.Logger
}

// NewRDSCollector creates an RDS collector for one account and region.
func NewRDSCollector(client RDSAPI, region, accountID string) *RDSCollector {
	return &RDSCollector{
		client:    client,
		region:    region,
		accountID: accountID,
		logger:    telemetry.NewLogger("rds-collector"),
	}
}

func (c *RDSCollector) ServiceName() string { return ServiceRDS }
func (c *RDSCollector) SheetName() string   { return "RDS_Instances" }

// Collect lists all database instances in the region. The per-instance tag
// lookup is an enrichment: its failure leaves the field empty and never
// aborts the collection.
func (c *RDSCollector) Collect(ctx context.Context) ([]types.Record, error) {
	paginator := rds.NewDescribeDBInstancesPaginator(c.client, &rds.DescribeDBInstancesInput{})

	var records []types.Record
	pages := 0
	for paginator.HasMorePages() {
		if pages++; pages > maxPages {
			return nil, collectionError(ServiceRDS, c.accountID, c.region, errPaginationCap())
		}
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, collectionError(ServiceRDS, c.accountID, c.region, err)
		}

		for _, instance := range output.DBInstances {
			name := c.lookupNameTag(ctx, instance)
			records = append(records, buildDBInstanceRecord(instance, c.accountID, name))
		}
	}

	return records, nil
}

// lookupNameTag fetches the instance's Name tag by ARN. Failures are
// swallowed and logged.
func (c *RDSCollector) lookupNameTag(ctx context.Context, instance rdstypes.DBInstance) string {
	arn := aws.ToString(instance.DBInstanceArn)
	if arn == "" {
		return ""
	}

	output, err := c.client.ListTagsForResource(ctx, &rds.ListTagsForResourceInput{
		ResourceName: aws.String(arn),
	})
	if err != nil {
		c.logger.WithContext(ctx).Warn().
			Err(err).
			Str("db_instance", aws.ToString(instance.DBInstanceIdentifier)).
			Msg("tag lookup failed, leaving name empty")
		return ""
	}

	return rdsNameTag(output.TagList)
}

// buildDBInstanceRecord normalizes one database instance into the flat
// field set. InstanceID carries the Name tag value.
func buildDBInstanceRecord(instance rdstypes.DBInstance, accountID, nameTag string) types.Record {
	var endpoint, port string
	if instance.Endpoint != nil {
		endpoint = aws.ToString(instance.Endpoint.Address)
		if instance.Endpoint.Port != nil {
			port = strconv.FormatInt(int64(*instance.Endpoint.Port), 10)
		}
	}

	return types.Record{
		"AccountID":             accountID,
		"AvailabilityZone":      aws.ToString(instance.AvailabilityZone),
		"ClusterID":             aws.ToString(instance.DBClusterIdentifier),
		"InstanceID":            nameTag,
		"Engine":                aws.ToString(instance.Engine),
		"EngineVersion":         aws.ToString(instance.EngineVersion),
		"Endpoint":              endpoint,
		"Port":                  port,
		"BackupRetentionPeriod": strconv.FormatInt(int64(aws.ToInt32(instance.BackupRetentionPeriod)), 10),
	}
}
