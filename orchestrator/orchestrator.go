// Package orchestrator expands the (accounts × regions × services) matrix
// into collection units and executes them with isolated failure handling.
package orchestrator

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudtally/cloudtally/journal"
	"github.com/cloudtally/cloudtally/telemetry"
	"github.com/cloudtally/cloudtally/types"
)

// Orchestrator coordinates assume → collect → aggregate across accounts.
type Orchestrator struct {
	broker  Broker
	factory CollectorFactory
	workers int
	logger  *telemetry.Logger
	metrics *telemetry.CollectionMetrics
	journal *journal.Journal
}

// New creates an orchestrator.
func New(broker Broker, factory CollectorFactory, opts Options) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Orchestrator{
		broker:  broker,
		factory: factory,
		workers: workers,
		logger:  telemetry.NewLogger("orchestrator"),
	}
}

// WithMetrics attaches collection metrics.
func (o *Orchestrator) WithMetrics(m *telemetry.CollectionMetrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithJournal attaches an audit journal for run and unit events.
func (o *Orchestrator) WithJournal(j *journal.Journal) *Orchestrator {
	o.journal = j
	return o
}

// record appends a journal event, logging on write failure.
func (o *Orchestrator) record(ctx context.Context, eventType journal.EventType, service, accountID, region string, count int, cause error) {
	if err := o.journal.Record(eventType, service, accountID, region, count, cause); err != nil {
		o.logger.WithContext(ctx).Warn().Err(err).Msg("journal write failed")
	}
}

// Run collects every enabled service for every account. One delegation per
// account; one result per unit, in deterministic unit order regardless of
// completion order. Unit failures are data, not control flow: only
// configuration problems produce an error from Run itself.
func (o *Orchestrator) Run(ctx context.Context, accounts []types.AccountTarget, regions []string, services []string) ([]types.CollectionResult, error) {
	if len(accounts) == 0 {
		return nil, &types.ConfigurationError{Reason: "no accounts to inventory"}
	}
	if len(services) == 0 {
		return nil, &types.ConfigurationError{Reason: "no services enabled"}
	}
	if len(regions) == 0 {
		return nil, &types.ConfigurationError{Reason: "no regions configured"}
	}

	sorted := append([]string(nil), services...)
	sort.Strings(sorted)

	creds, assumeErrs := o.assumeAll(ctx, accounts)
	units := expandUnits(accounts, regions, sorted, o.factory)

	o.logger.WithContext(ctx).Info().
		Int("accounts", len(accounts)).
		Int("regions", len(regions)).
		Int("services", len(sorted)).
		Int("units", len(units)).
		Msg("starting collection run")
	o.record(ctx, journal.EventRunStarted, "", "", "", len(units), nil)

	// Results land in the slot assigned at expansion time, so aggregation
	// order never depends on scheduling.
	results := make([]types.CollectionResult, len(units))

	g := &errgroup.Group{}
	g.SetLimit(o.workers)
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			results[i] = o.runUnit(ctx, unit, creds, assumeErrs)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(results)
	o.logger.WithContext(ctx).Info().
		Int("total_resources", summary.TotalResources).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("collection run complete")
	o.record(ctx, journal.EventRunCompleted, "", "", "", summary.TotalResources, nil)

	return results, nil
}

// assumeAll performs one delegation per account. Failures are recorded and
// later surfaced on each of the account's units.
func (o *Orchestrator) assumeAll(ctx context.Context, accounts []types.AccountTarget) (map[string]types.DelegatedCredential, map[string]error) {
	creds := make(map[string]types.DelegatedCredential, len(accounts))
	assumeErrs := make(map[string]error)

	for _, account := range accounts {
		cred, err := o.broker.Assume(ctx, account)
		if err != nil {
			o.logger.WithContext(ctx).Error().
				Err(err).
				Str("account_id", account.AccountID).
				Msg("role assume failed")
			o.record(ctx, journal.EventAssumeFailed, "", account.AccountID, "", 0, err)
			assumeErrs[account.AccountID] = err
			continue
		}
		creds[account.AccountID] = cred
	}
	return creds, assumeErrs
}

// expandUnits builds the deterministic work list: per account, global
// services once at the default region, then regional services per region.
func expandUnits(accounts []types.AccountTarget, regions []string, services []string, factory CollectorFactory) []types.CollectionUnit {
	var units []types.CollectionUnit

	for _, account := range accounts {
		for _, service := range services {
			if factory.IsGlobal(service) {
				units = append(units, types.CollectionUnit{
					Service:   service,
					Region:    regions[0],
					AccountID: account.AccountID,
				})
			}
		}
		for _, region := range regions {
			for _, service := range services {
				if factory.IsGlobal(service) {
					continue
				}
				units = append(units, types.CollectionUnit{
					Service:   service,
					Region:    region,
					AccountID: account.AccountID,
				})
			}
		}
	}
	return units
}

// runUnit executes one collection unit. It never panics the batch: every
// failure mode ends up inside the returned result.
func (o *Orchestrator) runUnit(ctx context.Context, unit types.CollectionUnit, creds map[string]types.DelegatedCredential, assumeErrs map[string]error) types.CollectionResult {
	result := types.CollectionResult{
		Service:   unit.Service,
		Region:    unit.Region,
		AccountID: unit.AccountID,
	}

	if ctx.Err() != nil {
		result.Err = types.ErrCancelled
		return result
	}

	if err, failed := assumeErrs[unit.AccountID]; failed {
		result.Err = err
		return result
	}

	collector, err := o.factory.New(unit.Service, creds[unit.AccountID], unit.Region, unit.AccountID)
	if err != nil {
		result.Err = err
		return result
	}
	result.SheetName = collector.SheetName()

	start := time.Now()
	rows, err := collector.Collect(ctx)
	duration := time.Since(start)
	o.metrics.RecordUnit(ctx, unit.Service, unit.AccountID, unit.Region, len(rows), duration, err)

	if err != nil {
		if ctx.Err() != nil {
			err = types.ErrCancelled
		}
		o.logger.WithContext(ctx).Error().
			Err(err).
			Str("service", unit.Service).
			Str("region", unit.Region).
			Str("account_id", unit.AccountID).
			Msg("unit failed")
		o.record(ctx, journal.EventUnitFailed, unit.Service, unit.AccountID, unit.Region, 0, err)
		result.Err = err
		return result
	}

	result.Rows = rows
	result.Count = len(rows)
	o.logger.WithContext(ctx).Info().
		Str("service", unit.Service).
		Str("region", unit.Region).
		Str("account_id", unit.AccountID).
		Int("count", result.Count).
		Dur("duration", duration).
		Msg("unit collected")
	o.record(ctx, journal.EventUnitDone, unit.Service, unit.AccountID, unit.Region, result.Count, nil)
	return result
}

// Flatten merges successful results into one record stream. Each record is
// tagged with internal service and region provenance; account identity is
// already a data field.
func Flatten(results []types.CollectionResult) []types.Record {
	var records []types.Record
	for _, result := range results {
		if result.Failed() {
			continue
		}
		for _, row := range result.Rows {
			tagged := row.Clone()
			tagged[types.FieldServiceTag] = result.Service
			tagged[types.FieldRegionTag] = result.Region
			records = append(records, tagged)
		}
	}
	return records
}

// Summarize computes the run's reporting counters.
func Summarize(results []types.CollectionResult) types.RunSummary {
	summary := types.RunSummary{
		Units:    len(results),
		Accounts: make(map[string]types.AccountSummary),
	}

	for _, result := range results {
		account := summary.Accounts[result.AccountID]
		if result.Failed() {
			summary.Failed++
			account.Failed++
		} else {
			summary.Succeeded++
			summary.TotalResources += result.Count
			account.Succeeded++
			account.Resources += result.Count
		}
		summary.Accounts[result.AccountID] = account
	}
	return summary
}
