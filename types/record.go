// Package types holds the shared data model for the inventory pipeline.
package types

import "strings"

// Record is one inventoried resource row, mapping field name to rendered value.
// Values are always present for the service's field set; absent remote values
// are empty strings, never missing keys.
type Record map[string]string

// Internal fields ride along with a record through the pipeline but are
// stripped before rows reach a sink. They all share the underscore prefix.
const (
	FieldServiceTag = "_service"
	FieldRegionTag  = "_region"
)

// IsInternalField reports whether a field is pipeline-internal.
func IsInternalField(name string) bool {
	return strings.HasPrefix(name, "_")
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	clone := make(Record, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

// ServiceTag returns the internal service tag, empty when untagged.
func (r Record) ServiceTag() string {
	return r[FieldServiceTag]
}
