package orchestrator

import (
	"context"

	"github.com/cloudtally/cloudtally/types"
)

// Collector lists one service in one account and region.
type Collector interface {
	ServiceName() string
	SheetName() string
	Collect(ctx context.Context) ([]types.Record, error)
}

// Broker exchanges an account target for delegated credentials.
type Broker interface {
	Assume(ctx context.Context, target types.AccountTarget) (types.DelegatedCredential, error)
}

// CollectorFactory builds collectors bound to delegated credentials and
// knows which services are global.
type CollectorFactory interface {
	New(service string, cred types.DelegatedCredential, region, accountID string) (Collector, error)
	IsGlobal(service string) bool
}

// Options tunes a collection run.
type Options struct {
	// Workers bounds concurrent unit execution. Values below one fall back
	// to the default.
	Workers int
}

const defaultWorkers = 4
