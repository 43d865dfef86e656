package sink

import (
	"fmt"
	"sort"
	"time"

	"github.com/cloudtally/cloudtally/classifier"
	"github.com/cloudtally/cloudtally/types"
)

const partitionDateLayout = "20060102"

// Partitioner groups records by classified service and dates each group.
type Partitioner struct {
	now func() time.Time
}

// NewPartitioner creates a partitioner using wall-clock dates.
func NewPartitioner() *Partitioner {
	return &Partitioner{now: time.Now}
}

// NewPartitionerAt creates a partitioner with an injected clock.
func NewPartitionerAt(now func() time.Time) *Partitioner {
	return &Partitioner{now: now}
}

// Partitions splits records into per-service partitions. Records that no
// per-record rule can place inherit the batch-level classification. Groups
// come out in first-seen order so output matches input ordering.
func (p *Partitioner) Partitions(records []types.Record) []Partition {
	if len(records) == 0 {
		return nil
	}

	batchService := classifier.ClassifyBatch(classifier.BatchColumns(records))
	date := p.now().UTC().Format(partitionDateLayout)

	groups := make(map[string][]types.Record)
	var order []string

	for _, record := range records {
		service := classifier.ClassifyRecord(record)
		if service == classifier.ServiceUnknown {
			service = batchService
		}
		if _, seen := groups[service]; !seen {
			order = append(order, service)
		}
		groups[service] = append(groups[service], exportRecord(record, service))
	}

	partitions := make([]Partition, 0, len(order))
	for _, service := range order {
		rows := groups[service]
		partitions = append(partitions, Partition{
			Name:    fmt.Sprintf("%s-%s", service, date),
			Service: service,
			Date:    date,
			Columns: columns(rows),
			Rows:    rows,
		})
	}
	return partitions
}

// exportRecord strips internal fields and stamps the resolved service.
func exportRecord(record types.Record, service string) types.Record {
	out := make(types.Record, len(record)+1)
	for key, value := range record {
		if types.IsInternalField(key) {
			continue
		}
		out[key] = value
	}
	out["service"] = service
	return out
}

// columns builds the partition's column layout: the sorted union of keys,
// minus columns empty in every row.
func columns(rows []types.Record) []string {
	populated := make(map[string]bool)
	for _, row := range rows {
		for key, value := range row {
			if value != "" {
				populated[key] = true
			}
		}
	}

	cols := make([]string, 0, len(populated))
	for key := range populated {
		cols = append(cols, key)
	}
	sort.Strings(cols)
	return cols
}
