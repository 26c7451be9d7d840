package ix

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/facts/coerce"
	"github.com/teranos/facts/entity"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/logger"
	"github.com/teranos/facts/variable"
)

// DefaultWorkers bounds concurrent entities when Pipeline.Workers is unset.
const DefaultWorkers = 4

// Pipeline fetches fragments for a set of entities from every source and
// coerces them into observations.
//
// Each entity is assembled by exactly one goroutine, so Variables are never
// shared between workers. Source failures and uncoercible values are
// reported as issues; configuration errors abort the run.
type Pipeline struct {
	Rules   *entity.Rules
	Funcs   entity.ParseFuncs
	Engine  *coerce.Engine
	Sources []Source
	Workers int
	Emitter ProgressEmitter
	Logger  *zap.SugaredLogger
	// Clock stamps fragments that carry no time and becomes "now" for the
	// assembled entities.
	Clock func() time.Time
}

type binding struct {
	rule entity.Rule
	desc coerce.Descriptor
}

type entityRun struct {
	entity   *entity.Entity
	stats    Stats
	warnings []Issue
	errors   []Issue
}

// Run assembles one Entity per title.
func (p *Pipeline) Run(ctx context.Context, titles []string) (*Result, error) {
	if p.Rules == nil {
		return nil, errors.Wrap(errors.ErrMissingOption, "pipeline has no rules")
	}
	bindings, err := p.bind()
	if err != nil {
		return nil, err
	}

	engine := p.Engine
	if engine == nil {
		engine = coerce.New()
	}
	emitter := p.Emitter
	if emitter == nil {
		emitter = NopEmitter{}
	}
	log := p.Logger
	if log == nil {
		log = logger.ComponentLogger("ix")
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	workers := p.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	start := time.Now()
	emitter.EmitStage("fetch", fmt.Sprintf("%d entities from %d sources", len(titles), len(p.Sources)))

	result := &Result{Entities: make([]*entity.Entity, len(titles))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, title := range titles {
		g.Go(func() error {
			run, err := p.runEntity(gctx, title, bindings, engine, emitter, log, clock)
			if err != nil {
				return err
			}

			mu.Lock()
			result.Entities[i] = run.entity
			result.Stats.add(run.stats)
			result.Warnings = append(result.Warnings, run.warnings...)
			result.Errors = append(result.Errors, run.errors...)
			mu.Unlock()

			emitter.EmitProgress(run.stats.Coerced, map[string]interface{}{"entity": title})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		emitter.EmitError("ix", err)
		return nil, err
	}

	result.Stats.DurationMs = time.Since(start).Milliseconds()
	log.Infow("ingestion complete",
		logger.FieldCount, len(titles),
		logger.FieldDurationMS, result.Stats.DurationMs,
		"coerced", result.Stats.Coerced,
		"skipped", result.Stats.Skipped,
		"failed", result.Stats.Failed)
	emitter.EmitComplete(result.Summary())
	return result, nil
}

func (p *Pipeline) bind() (map[string]binding, error) {
	out := make(map[string]binding, p.Rules.Len())
	for _, r := range p.Rules.All() {
		if _, dup := out[r.Field]; dup {
			continue
		}
		d, err := r.Descriptor(p.Funcs)
		if err != nil {
			return nil, errors.Wrapf(err, "rule for %q", r.Field)
		}
		out[r.Field] = binding{rule: r, desc: d}
	}
	return out, nil
}

func (p *Pipeline) runEntity(
	ctx context.Context,
	title string,
	bindings map[string]binding,
	engine *coerce.Engine,
	emitter ProgressEmitter,
	base *zap.SugaredLogger,
	clock func() time.Time,
) (*entityRun, error) {
	e := entity.New(title).WithClock(clock)
	run := &entityRun{entity: e}
	log := logger.FromContext(logger.WithEntity(ctx, e.Key), base)

	for _, src := range p.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frags, err := src.Fetch(ctx, title)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warnw("source failed", logger.FieldSource, src.Name(), logger.FieldError, err)
			emitter.EmitError(src.Name(), err)
			run.errors = append(run.errors, Issue{
				Stage:   "fetch",
				Code:    CodeSourceFailed,
				Message: err.Error(),
				Entity:  title,
				Source:  src.Name(),
				Hints:   errors.GetAllHints(err),
			})
			continue
		}

		fetchedAt := clock()
		for _, f := range frags {
			run.stats.Fetched++
			source := f.Source
			if source == "" {
				source = src.Name()
			}

			if f.Entity != "" && entity.Key(f.Entity) != e.Key {
				run.stats.Skipped++
				run.warnings = append(run.warnings, Issue{
					Stage:   "coerce",
					Code:    CodeEntityMismatch,
					Message: fmt.Sprintf("fragment for %q returned while fetching %q", f.Entity, title),
					Entity:  title,
					Field:   f.Field,
					Source:  source,
				})
				continue
			}

			b, ok := bindings[f.Field]
			if !ok {
				run.stats.Skipped++
				run.warnings = append(run.warnings, Issue{
					Stage:   "coerce",
					Code:    CodeNoRule,
					Message: fmt.Sprintf("no rule for field %q", f.Field),
					Entity:  title,
					Field:   f.Field,
					Source:  source,
					Hints:   []string{"add a [[rule]] table for this field to the rules file"},
				})
				continue
			}

			v, err := engine.Coerce(f.Raw, b.desc)
			if err != nil {
				return nil, errors.Wrapf(err, "entity %q field %q", title, f.Field)
			}
			if isEmpty(v) {
				run.stats.Failed++
				run.warnings = append(run.warnings, Issue{
					Stage:   "coerce",
					Code:    CodeNotCoercible,
					Message: fmt.Sprintf("%s value %q not coercible", b.desc.String(), rawString(f)),
					Entity:  title,
					Field:   f.Field,
					Source:  source,
				})
				continue
			}

			t := f.Time
			if t.IsZero() {
				t = fetchedAt
			}
			e.Observe(b.rule.Variable(), variable.Observation{Time: t, Value: v, Source: source})
			run.stats.Coerced++
		}
	}

	log.Debugw("entity assembled", logger.FieldCount, run.stats.Coerced)
	return run, nil
}

// isEmpty treats nil and empty lists as no value.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if l, ok := v.([]any); ok {
		return len(l) == 0
	}
	return false
}

func rawString(f Fragment) string {
	if f.Raw == nil {
		return ""
	}
	return f.Raw.String()
}
