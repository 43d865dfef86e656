package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/workspaces"
	wstypes "github.com/aws/aws-sdk-go-v2/service/workspaces/types"

	"github.com/cloudtally/cloudtally/types"
)

// WorkspacesCollector inventories virtual desktops.
type WorkspacesCollector struct {
	client    workspaces.DescribeWorkspacesAPIClient
	region    string
	accountID string
}

// NewWorkspacesCollector creates a WorkSpaces collector for one account and region.
func NewWorkspacesCollector(client workspaces.DescribeWorkspacesAPIClient, region, accountID string) *WorkspacesCollector {
	return &WorkspacesCollector{client: client, region: region, accountID: accountID}
}

func (c *WorkspacesCollector) ServiceName() string { return ServiceWorkspaces }
func (c *WorkspacesCollector) SheetName() string   { return "WorkSpaces" }

// Collect lists all workspaces in the region.
func (c *WorkspacesCollector) Collect(ctx context.Context) ([]types.Record, error) {
	paginator := workspaces.NewDescribeWorkspacesPaginator(c.client, &workspaces.DescribeWorkspacesInput{})

	var records []types.Record
	pages := 0
	for paginator.HasMorePages() {
		if pages++; pages > maxPages {
			return nil, collectionError(ServiceWorkspaces, c.accountID, c.region, errPaginationCap())
		}
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, collectionError(ServiceWorkspaces, c.accountID, c.region, err)
		}

		for _, workspace := range output.Workspaces {
			records = append(records, buildWorkspaceRecord(workspace, c.accountID))
		}
	}

	return records, nil
}

// buildWorkspaceRecord normalizes one workspace into the flat field set.
func buildWorkspaceRecord(workspace wstypes.Workspace, accountID string) types.Record {
	return types.Record{
		"WorkspaceID":  aws.ToString(workspace.WorkspaceId),
		"UserName":     aws.ToString(workspace.UserName),
		"ComputerName": aws.ToString(workspace.ComputerName),
		"IPAddress":    aws.ToString(workspace.IpAddress),
		"State":        string(workspace.State),
		"BundleId":     aws.ToString(workspace.BundleId),
		"DirectoryId":  aws.ToString(workspace.DirectoryId),
		"AccountID":    accountID,
	}
}
