package record

import (
	"context"

	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/pkg/schema"
)

// Phase is one of the six points in the batch lifecycle an Observer may
// hook (spec.md §4.4, §REDESIGN FLAGS: "tagged-variant registry").
type Phase string

const (
	PhaseCreatePre  Phase = "pre-create"
	PhaseCreatePost Phase = "post-create"
	PhaseUpdatePre  Phase = "pre-update"
	PhaseUpdatePost Phase = "post-update"
	PhaseDeletePre  Phase = "pre-delete"
	PhaseDeletePost Phase = "post-delete"
)

// Observer is invoked once per batch with every Record the batch
// touched. A pre-phase Observer may return an error to abort the whole
// batch (the pipeline rolls back). Post-phase Observers run after the
// adapter write has committed its statement inside the same
// transaction; an error there still rolls back the batch, since the
// pipeline never reports success unless every observer agreed.
type Observer interface {
	Run(ctx context.Context, batch *Batch) error
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx context.Context, batch *Batch) error

func (f ObserverFunc) Run(ctx context.Context, batch *Batch) error { return f(ctx, batch) }

// Batch is what an Observer sees: the model it ran against, the phase,
// the adapter-scoped transaction the batch is running in, and the
// records being processed. For updates, Before holds the pre-image
// keyed by record id so post-update observers can diff.
type Batch struct {
	ModelName string
	Phase     Phase
	Tx        dbadapter.Tx
	Records   []Record
	Before    map[string]Record
	Schema    schema.Schema
	Dialect   dbadapter.Dialect
}

// registryKey pairs a model name ("*" for wildcard) with a phase.
type registryKey struct {
	model string
	phase Phase
}

// ObserverRegistry is a stable-ordered, (model, phase)-keyed vector of
// Observers. Wildcard observers (registered against "*") always run
// before model-specific ones for the same phase (spec.md's REDESIGN
// FLAGS section).
type ObserverRegistry struct {
	wildcard map[Phase][]Observer
	byModel  map[registryKey][]Observer
}

// NewObserverRegistry builds an empty registry.
func NewObserverRegistry() *ObserverRegistry {
	return &ObserverRegistry{
		wildcard: make(map[Phase][]Observer),
		byModel:  make(map[registryKey][]Observer),
	}
}

// Register appends obs to the (model, phase) bucket. model == "*"
// registers a wildcard observer that runs for every model.
func (r *ObserverRegistry) Register(model string, phase Phase, obs Observer) {
	if model == "*" {
		r.wildcard[phase] = append(r.wildcard[phase], obs)
		return
	}
	key := registryKey{model: model, phase: phase}
	r.byModel[key] = append(r.byModel[key], obs)
}

// For returns the ordered observer list for (model, phase): wildcard
// observers first, then model-specific ones, each in registration order.
func (r *ObserverRegistry) For(model string, phase Phase) []Observer {
	out := make([]Observer, 0, len(r.wildcard[phase])+len(r.byModel[registryKey{model: model, phase: phase}]))
	out = append(out, r.wildcard[phase]...)
	out = append(out, r.byModel[registryKey{model: model, phase: phase}]...)
	return out
}

// Run executes every observer registered for (batch.ModelName,
// batch.Phase) in order, stopping at the first error.
func (r *ObserverRegistry) Run(ctx context.Context, batch *Batch) error {
	for _, obs := range r.For(batch.ModelName, batch.Phase) {
		if err := obs.Run(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}
