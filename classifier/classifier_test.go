package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudtally/cloudtally/types"
)

func TestClassifyBatch(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    string
	}{
		{"bucket columns", []string{"AccountID", "BucketName", "CreationDate"}, ServiceS3},
		{"instance columns", []string{"AccountID", "InstanceID", "Platform"}, ServiceEC2},
		{"database columns", []string{"AccountID", "Engine", "DatabaseName"}, ServiceRDS},
		{"db substring", []string{"DBIdentifier"}, ServiceRDS},
		{"workspace columns", []string{"WorkspaceID", "UserName"}, ServiceWorkspaces},
		{"no match", []string{"AccountID", "Region"}, ServiceUnknown},
		{"empty", nil, ServiceUnknown},
		// Priority: bucket rule precedes instance rule.
		{"bucket beats instance", []string{"bucket_name", "instance_type"}, ServiceS3},
		// Priority: instance rule precedes database rule.
		{"instance beats database", []string{"instance_id", "database_engine"}, ServiceEC2},
		{"case insensitive", []string{"BUCKETNAME"}, ServiceS3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyBatch(tt.columns))
		})
	}
}

func TestClassifyRecordExplicitTags(t *testing.T) {
	t.Run("internal service tag wins", func(t *testing.T) {
		record := types.Record{
			types.FieldServiceTag: "RDS",
			"BucketName":          "looks-like-s3",
		}
		assert.Equal(t, ServiceRDS, ClassifyRecord(record))
	})

	t.Run("service field second", func(t *testing.T) {
		record := types.Record{"service": "EC2", "BucketName": "x"}
		assert.Equal(t, ServiceEC2, ClassifyRecord(record))
	})

	t.Run("empty tags fall through", func(t *testing.T) {
		record := types.Record{
			types.FieldServiceTag: "",
			"service":             "",
			"WorkspaceID":         "ws-123",
		}
		assert.Equal(t, ServiceWorkspaces, ClassifyRecord(record))
	})
}

func TestClassifyRecordResourceType(t *testing.T) {
	tests := []struct {
		resourceType string
		want         string
	}{
		{"aws_s3_bucket", ServiceS3},
		{"ec2_instance", ServiceEC2},
		{"database_cluster", ServiceRDS},
		{"rds", ServiceRDS},
		{"workspace", ServiceWorkspaces},
		{"vpc", ServiceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.resourceType, func(t *testing.T) {
			record := types.Record{"resource_type": tt.resourceType}
			assert.Equal(t, tt.want, ClassifyRecord(record))
		})
	}
}

func TestClassifyRecordHeuristics(t *testing.T) {
	t.Run("instance-shaped value under arbitrary field name", func(t *testing.T) {
		record := types.Record{"identifier": "i-0abc123"}
		assert.Equal(t, ServiceEC2, ClassifyRecord(record))
	})

	t.Run("ami-shaped value", func(t *testing.T) {
		record := types.Record{"image": "ami-0f1e2d3c"}
		assert.Equal(t, ServiceEC2, ClassifyRecord(record))
	})

	t.Run("bucket-keyed field", func(t *testing.T) {
		record := types.Record{"BucketName": "prod-assets"}
		assert.Equal(t, ServiceS3, ClassifyRecord(record))
	})

	t.Run("bucket-shaped endpoint value", func(t *testing.T) {
		record := types.Record{"endpoint": "my-bucket.s3.amazonaws.com"}
		assert.Equal(t, ServiceS3, ClassifyRecord(record))
	})

	t.Run("database term in key", func(t *testing.T) {
		record := types.Record{"MysqlVersion": "8.0"}
		assert.Equal(t, ServiceRDS, ClassifyRecord(record))
	})

	t.Run("workspace key", func(t *testing.T) {
		record := types.Record{"WorkspaceID": "ws-abc"}
		assert.Equal(t, ServiceWorkspaces, ClassifyRecord(record))
	})

	t.Run("instance value beats bucket key", func(t *testing.T) {
		record := types.Record{
			"BucketName": "some-bucket",
			"ref":        "i-0abc123",
		}
		assert.Equal(t, ServiceEC2, ClassifyRecord(record))
	})

	t.Run("empty-valued keys never match", func(t *testing.T) {
		record := types.Record{"BucketName": "", "WorkspaceID": ""}
		assert.Equal(t, ServiceUnknown, ClassifyRecord(record))
	})

	t.Run("no rules match", func(t *testing.T) {
		record := types.Record{"AccountID": "123456789012", "Region": "us-east-1"}
		assert.Equal(t, ServiceUnknown, ClassifyRecord(record))
	})
}

func TestClassifyRecordDeterministic(t *testing.T) {
	// Both fields would match different rules at the same heuristic step;
	// sorted key order keeps the answer stable across runs.
	record := types.Record{
		"zz_database_name": "orders",
		"aa_workspace_ref": "ws-1",
	}

	first := ClassifyRecord(record)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, ClassifyRecord(record))
	}
	// Database rule precedes workspace rule regardless of key spelling.
	assert.Equal(t, ServiceRDS, first)
}

func TestBatchColumns(t *testing.T) {
	records := []types.Record{
		{"B": "1", "A": "2", "_service": "ec2"},
		{"C": "3", "A": "4", "_region": "us-east-1"},
	}

	assert.Equal(t, []string{"A", "B", "C"}, BatchColumns(records))
}
