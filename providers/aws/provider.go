// Package aws implements per-service resource collectors over the AWS SDK.
package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/workspaces"

	"github.com/cloudtally/cloudtally/broker"
	"github.com/cloudtally/cloudtally/types"
)

// Collector lists one service in one account and region and normalizes each
// remote record into a flat Record.
type Collector interface {
	ServiceName() string
	SheetName() string
	Collect(ctx context.Context) ([]types.Record, error)
}

// maxPages caps cursor pagination per unit. Listing calls terminate when the
// server stops returning a continuation token; the cap is the safety net
// against a runaway token loop.
const maxPages = 500

// Service names as they appear in configuration and output partitions.
const (
	ServiceEC2        = "ec2"
	ServiceS3         = "s3"
	ServiceRDS        = "rds"
	ServiceWorkspaces = "workspaces"
)

// globalServices are inventoried once per account at the default region.
var globalServices = map[string]bool{
	"s3":         true,
	"iam":        true,
	"cloudfront": true,
	"route53":    true,
}

var supportedServices = []string{ServiceEC2, ServiceRDS, ServiceS3, ServiceWorkspaces}

// Supported returns the service names with a collector variant.
func Supported() []string {
	return append([]string(nil), supportedServices...)
}

// IsSupported reports whether a collector variant exists for the service.
func IsSupported(service string) bool {
	for _, s := range supportedServices {
		if s == service {
			return true
		}
	}
	return false
}

// IsGlobal reports whether the service's inventory is region-independent.
func IsGlobal(service string) bool {
	return globalServices[service]
}

// Factory builds service collectors bound to delegated credentials.
type Factory struct{}

// NewFactory creates a collector factory.
func NewFactory() *Factory {
	return &Factory{}
}

// IsGlobal implements the orchestrator's factory contract.
func (f *Factory) IsGlobal(service string) bool {
	return IsGlobal(service)
}

// New builds the collector variant for one (service, account, region) unit.
// Client construction is pure; it fails only on unknown services.
func (f *Factory) New(service string, cred types.DelegatedCredential, region, accountID string) (Collector, error) {
	cfg := broker.ClientConfig(cred, region)

	switch service {
	case ServiceEC2:
		return NewEC2Collector(ec2.NewFromConfig(cfg), region, accountID), nil
	case ServiceS3:
		return NewS3Collector(s3.NewFromConfig(cfg), region, accountID), nil
	case ServiceRDS:
		return NewRDSCollector(rds.NewFromConfig(cfg), region, accountID), nil
	case ServiceWorkspaces:
		return NewWorkspacesCollector(workspaces.NewFromConfig(cfg), region, accountID), nil
	default:
		return nil, fmt.Errorf("unsupported service %q", service)
	}
}

// collectionError wraps a primary listing failure with the unit's identity.
func collectionError(service, accountID, region string, err error) error {
	return &types.CollectionError{
		Service:   service,
		AccountID: accountID,
		Region:    region,
		Err:       err,
	}
}

// errPaginationCap is the cause recorded when the page cap trips.
func errPaginationCap() error {
	return fmt.Errorf("pagination exceeded %d pages", maxPages)
}

// formatTime renders an optional timestamp, empty when absent.
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
