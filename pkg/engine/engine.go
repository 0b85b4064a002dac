// Package engine saves tagged fields of a live graph into per-group store entries and
// restores them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/graph"
	"github.com/aretw0/strata/pkg/registry"
)

// Phase is the current step of a save or load pass.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseScanning Phase = "scanning"
	PhaseWriting  Phase = "writing"
	PhaseReading  Phase = "reading"
	PhaseApplying Phase = "applying"
	PhaseDone     Phase = "done"
)

// Engine ties a graph, a registry and a store together.
// Save and load passes run synchronously on the caller's goroutine.
type Engine struct {
	graph      graph.Graph
	store      core.Store
	registry   *registry.Registry
	rehydrator *Rehydrator
	logger     *slog.Logger

	mu         sync.RWMutex
	phase      Phase
	lastReport *core.Report
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Without one the engine is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRegistry replaces the default registry (tag "persist", JSON payloads).
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		if reg != nil {
			e.registry = reg
		}
	}
}

// New creates an Engine over g persisting into store.
func New(g graph.Graph, store core.Store, opts ...Option) *Engine {
	e := &Engine{
		graph:    g,
		store:    store,
		registry: registry.New(),
		logger:   slog.New(slog.DiscardHandler),
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rehydrator = NewRehydrator(g, e.registry)
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() core.Store { return e.store }

// SaveGroup writes the records of a single group.
// A group with no tagged field in the graph is not written.
func (e *Engine) SaveGroup(ctx context.Context, group string) error {
	records, scanErr := e.scan()
	defer e.setPhase(PhaseDone)

	group = e.canonical(group, nil)

	selected := lo.Filter(records, func(r core.Record, _ int) bool {
		return r.Group == group
	})
	if len(selected) == 0 {
		e.logger.Debug("nothing to save", "group", group)
		return scanErr
	}

	e.setPhase(PhaseWriting)
	if err := e.write(ctx, group, selected); err != nil {
		return errors.Join(err, scanErr)
	}
	return scanErr
}

// SaveAll scans the graph once and writes one entry per discovered group.
// A failed write is reported and does not stop the remaining groups.
func (e *Engine) SaveAll(ctx context.Context) error {
	records, scanErr := e.scan()
	defer e.setPhase(PhaseDone)

	order, groups := groupRecords(records)
	errs := []error{scanErr}

	e.setPhase(PhaseWriting)
	for _, group := range order {
		if err := e.write(ctx, group, groups[group]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) write(ctx context.Context, group string, records []core.Record) error {
	if err := e.store.Save(ctx, group, records); err != nil {
		e.logger.Error("save failed", "group", group, "error", err)
		return fmt.Errorf("save %s: %w", group, err)
	}
	e.logger.Debug("group saved", "group", group, "records", len(records))
	return nil
}

// LoadAll restores every group that has a stored entry.
// It reports whether every such group could be read and decoded; per-record
// failures are logged and do not affect the result. See Load for details.
func (e *Engine) LoadAll(ctx context.Context) bool {
	return e.Load(ctx).OK()
}

// Load restores every group discovered in the graph that has a stored entry.
//
// A group without an entry is skipped silently. An entry that cannot be read or
// decoded aborts that group only. Records that cannot be applied are reported and
// skipped. Load never stops early.
func (e *Engine) Load(ctx context.Context) core.Report {
	records, scanErr := e.scan()
	order, _ := groupRecords(records)

	report := core.Report{Groups: len(order)}
	if scanErr != nil {
		report.Errors = append(report.Errors, scanErr)
	}
	for _, group := range order {
		e.setPhase(PhaseReading)
		stored, err := e.store.Load(ctx, group)
		if errors.Is(err, core.ErrNotFound) {
			e.logger.Debug("no stored entry", "group", group)
			continue
		}
		report.WithEntry++
		if err != nil {
			e.logger.Error("load failed", "group", group, "error", err)
			report.Errors = append(report.Errors, fmt.Errorf("load %s: %w", group, err))
			continue
		}
		report.Loaded++

		e.setPhase(PhaseApplying)
		for _, rec := range stored {
			if err := e.rehydrator.Apply(rec); err != nil {
				e.logger.Error("rehydrate failed",
					"group", group,
					"owner", rec.Owner,
					"component", rec.Component,
					"field", rec.Field,
					"error", err,
				)
				report.Skipped++
				report.Errors = append(report.Errors, err)
				continue
			}
			report.Applied++
		}
	}

	e.finish(report)
	e.logger.Info("load finished", "report", report.String())
	return report
}

func (e *Engine) scan() ([]core.Record, error) {
	e.setPhase(PhaseScanning)
	records, err := e.registry.Scan(e.graph)
	if err != nil {
		e.logger.Warn("some fields could not be encoded", "error", err)
	}

	seen := make(map[string]string)
	for i := range records {
		records[i].Group = e.canonical(records[i].Group, seen)
	}
	return records, err
}

// canonical asks the store for the canonical spelling of group so tags naming the
// same entry differently end up in one group. Names the store rejects are kept as
// written and fail when saved or loaded.
func (e *Engine) canonical(group string, seen map[string]string) string {
	namer, ok := e.store.(core.GroupNamer)
	if !ok {
		return group
	}
	if name, ok := seen[group]; ok {
		return name
	}
	name, err := namer.Group(group)
	if err != nil {
		name = group
	}
	if seen != nil {
		seen[group] = name
	}
	if name != group {
		e.logger.Debug("group renamed", "tag", group, "group", name)
	}
	return name
}

// groupRecords buckets records by group, keeping discovery order for both the groups
// and the records inside each group.
func groupRecords(records []core.Record) ([]string, map[string][]core.Record) {
	groups := lo.GroupBy(records, func(r core.Record) string { return r.Group })
	order := lo.Uniq(lo.Map(records, func(r core.Record, _ int) string { return r.Group }))
	return order, groups
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = p
}

func (e *Engine) finish(r core.Report) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = PhaseDone
	e.lastReport = &r
}
