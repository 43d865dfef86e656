// Package sink turns flattened collection records into partitioned output.
package sink

import (
	"context"

	"github.com/cloudtally/cloudtally/types"
)

// Partition is one output group: a service's records on a given date, with
// a stable column layout.
type Partition struct {
	Name    string
	Service string
	Date    string
	Columns []string
	Rows    []types.Record
}

// Sink writes partitions to a destination.
type Sink interface {
	Write(ctx context.Context, partitions []Partition) error
}
