// Package classifier assigns unlabeled resource records to a service
// category using field-name and value pattern matching. It is the safety net
// used when downstream routing lacks explicit service tags.
package classifier

import (
	"sort"
	"strings"

	"github.com/cloudtally/cloudtally/types"
)

// Service categories the classifier can return.
const (
	ServiceEC2        = "ec2"
	ServiceS3         = "s3"
	ServiceRDS        = "rds"
	ServiceWorkspaces = "workspaces"
	ServiceUnknown    = "unknown"
)

// databaseTerms mark a key as database-related. "rds" overlaps "database"
// in some field names; first match wins so the overlap is harmless.
var databaseTerms = []string{"database", "rds", "mysql", "postgres", "oracle"}

// ClassifyBatch infers the service from the union of field names in a
// batch. Priority order is significant: bucket fields win over instance
// fields, which win over database fields, which win over workspace fields.
func ClassifyBatch(columns []string) string {
	lowered := make([]string, len(columns))
	for i, col := range columns {
		lowered[i] = strings.ToLower(col)
	}

	switch {
	case anyContains(lowered, "bucket"):
		return ServiceS3
	case anyContains(lowered, "instance"):
		return ServiceEC2
	case anyContains(lowered, "database", "rds", "db"):
		return ServiceRDS
	case anyContains(lowered, "workspace"):
		return ServiceWorkspaces
	default:
		return ServiceUnknown
	}
}

// ClassifyRecord infers the service for a single record. It never fails;
// records matching no rule come back as ServiceUnknown so the caller can
// fall back to batch-level classification.
//
// Rules apply in fixed priority order, and each rule scans keys in sorted
// order, so identical input always classifies identically.
func ClassifyRecord(record types.Record) string {
	if service := record[types.FieldServiceTag]; service != "" {
		return strings.ToLower(service)
	}
	if service := record["service"]; service != "" {
		return strings.ToLower(service)
	}
	if service := classifyResourceType(record["resource_type"]); service != ServiceUnknown {
		return service
	}
	return classifyByHeuristics(record)
}

// classifyResourceType matches an explicit resource_type value against the
// same keyword set as batch classification.
func classifyResourceType(resourceType string) string {
	rt := strings.ToLower(resourceType)
	switch {
	case rt == "":
		return ServiceUnknown
	case strings.Contains(rt, "bucket") || strings.Contains(rt, "s3"):
		return ServiceS3
	case strings.Contains(rt, "instance") || strings.Contains(rt, "ec2"):
		return ServiceEC2
	case containsAny(rt, "database", "rds", "db"):
		return ServiceRDS
	case strings.Contains(rt, "workspace"):
		return ServiceWorkspaces
	default:
		return ServiceUnknown
	}
}

// classifyByHeuristics scans field names and values for service-shaped
// patterns.
func classifyByHeuristics(record types.Record) string {
	keys := sortedKeys(record)

	// Instance-id-shaped values under any field name.
	for _, key := range keys {
		value := strings.ToLower(record[key])
		if strings.HasPrefix(value, "i-") || strings.HasPrefix(value, "ami-") {
			return ServiceEC2
		}
	}

	// Bucket-keyed fields or bucket-shaped storage endpoint values.
	for _, key := range keys {
		value := strings.ToLower(record[key])
		if strings.Contains(strings.ToLower(key), "bucket") && record[key] != "" {
			return ServiceS3
		}
		if strings.Contains(value, "bucket") && strings.Contains(value, "amazonaws.com") {
			return ServiceS3
		}
	}

	// Database engine terms in field names.
	for _, key := range keys {
		if containsAny(strings.ToLower(key), databaseTerms...) && record[key] != "" {
			return ServiceRDS
		}
	}

	// Workspace-keyed fields.
	for _, key := range keys {
		if strings.Contains(strings.ToLower(key), "workspace") && record[key] != "" {
			return ServiceWorkspaces
		}
	}

	return ServiceUnknown
}

// BatchColumns returns the sorted union of field names across records,
// excluding pipeline-internal fields.
func BatchColumns(records []types.Record) []string {
	seen := make(map[string]bool)
	for _, record := range records {
		for key := range record {
			if !types.IsInternalField(key) {
				seen[key] = true
			}
		}
	}

	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func sortedKeys(record types.Record) []string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func anyContains(values []string, substrings ...string) bool {
	for _, value := range values {
		if containsAny(value, substrings...) {
			return true
		}
	}
	return false
}

func containsAny(value string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(value, sub) {
			return true
		}
	}
	return false
}
