package deploy

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ekisa-team/modelserve/internal/env"
)

// Observation is the load the execution substrate reports for a deployment.
type Observation struct {
	// Utilization is observed load relative to capacity, typically in [0, 1+).
	Utilization float64

	// RequestRate is the observed request rate, used for the inactivity check.
	RequestRate float64

	// At is when the observation was taken.
	At time.Time
}

// Reason classifies a scaling decision.
type Reason string

const (
	ReasonScaleUp   Reason = "scale-up"
	ReasonScaleDown Reason = "scale-down"
	ReasonHold      Reason = "hold"
)

// Decision is the outcome of one control-loop tick. Only the most recent
// decision is retained.
type Decision struct {
	Observed float64 `json:"observed_load"`
	Current  int     `json:"current_replicas"`
	Target   int     `json:"target_replicas"`
	Reason   Reason  `json:"reason"`
	At       time.Time
}

// ApplyFunc hands a scaling decision to the execution substrate.
type ApplyFunc func(ctx context.Context, d Decision) error

// AutoscalerConfig holds the control-loop knobs. Zero values fall back to the
// documented defaults.
type AutoscalerConfig struct {
	// TickInterval is the control-loop period. Default 15s.
	TickInterval time.Duration

	// HysteresisBand widens the hold region around the target utilization so
	// scale-up and scale-down thresholds differ. Additive; default 0.1.
	HysteresisBand float64

	// StepFraction caps how far a single tick may move the replica count,
	// as a fraction of the current count. Default 0.5.
	StepFraction float64

	// InactivityWindow is how long observed load must stay at zero before a
	// non-prod deployment is shut down. Default 10m.
	InactivityWindow time.Duration

	// AlertAfterFailures is how many consecutive apply failures escalate to
	// an alert. Default 3.
	AlertAfterFailures int
}

func (c AutoscalerConfig) withDefaults() AutoscalerConfig {
	if c.TickInterval == 0 {
		c.TickInterval = 15 * time.Second
	}
	if c.HysteresisBand == 0 {
		c.HysteresisBand = 0.1
	}
	if c.StepFraction == 0 {
		c.StepFraction = 0.5
	}
	if c.InactivityWindow == 0 {
		c.InactivityWindow = 10 * time.Minute
	}
	if c.AlertAfterFailures == 0 {
		c.AlertAfterFailures = 3
	}

	return c
}

// Autoscaler reconciles desired against observed replica count for a single
// deployment. It runs on its own ticker and stops when the deployment
// retires.
type Autoscaler struct {
	desc     *Descriptor
	cfg      AutoscalerConfig
	apply    ApplyFunc
	alert    func(*Descriptor, error)
	onRetire func(*Descriptor)

	mu        sync.Mutex
	latest    *Observation
	current   int
	last      Decision
	idleSince time.Time
	failures  int
	stop      context.CancelFunc
}

// AutoscalerOption configures an autoscaler.
type AutoscalerOption func(*Autoscaler)

// WithAlert sets the callback invoked after sustained apply failures.
func WithAlert(alert func(*Descriptor, error)) AutoscalerOption {
	return func(a *Autoscaler) { a.alert = alert }
}

// WithOnRetire sets the callback invoked when the autoscaler retires its
// deployment after the inactivity window.
func WithOnRetire(onRetire func(*Descriptor)) AutoscalerOption {
	return func(a *Autoscaler) { a.onRetire = onRetire }
}

// NewAutoscaler creates an autoscaler for an active deployment starting at
// the given replica count.
func NewAutoscaler(desc *Descriptor, initialReplicas int, cfg AutoscalerConfig, apply ApplyFunc, opts ...AutoscalerOption) *Autoscaler {
	a := &Autoscaler{
		desc:    desc,
		cfg:     cfg.withDefaults(),
		apply:   apply,
		current: initialReplicas,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Observe records the latest load observation from the substrate.
func (a *Autoscaler) Observe(o Observation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.latest = &o
}

// Replicas returns the replica count the autoscaler currently believes in.
func (a *Autoscaler) Replicas() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.current
}

// LastDecision returns the most recent decision.
func (a *Autoscaler) LastDecision() Decision {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.last
}

// Start runs the control loop until the context is cancelled or Stop is
// called.
func (a *Autoscaler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.stop = cancel
	a.mu.Unlock()

	go a.run(ctx)
}

// Stop cancels the control loop.
func (a *Autoscaler) Stop() {
	a.mu.Lock()
	stop := a.stop
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (a *Autoscaler) run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.tick(ctx, now)
			if a.desc.State() == StateRetired {
				return
			}
		}
	}
}

// tick computes and applies one scaling decision. A deployment whose load has
// been zero for the inactivity window is retired instead, unless it is prod.
func (a *Autoscaler) tick(ctx context.Context, now time.Time) Decision {
	a.mu.Lock()
	decision := a.decideLocked(now)
	retire := a.idleExpiredLocked(now)
	a.mu.Unlock()

	if retire {
		slog.Info("Auto-shutdown after inactivity window",
			"deployment_id", a.desc.ID, "window", a.cfg.InactivityWindow)
		if err := a.desc.Retire(); err != nil {
			slog.Error("Failed to retire idle deployment", "deployment_id", a.desc.ID, "error", err)
		} else if a.onRetire != nil {
			a.onRetire(a.desc)
		}
		return decision
	}

	if decision.Target != decision.Current {
		if err := a.apply(ctx, decision); err != nil {
			a.mu.Lock()
			a.failures++
			failures := a.failures
			a.mu.Unlock()

			slog.Warn("Failed to apply scaling decision, will retry next tick",
				"deployment_id", a.desc.ID, "target", decision.Target, "error", err)

			if failures >= a.cfg.AlertAfterFailures && a.alert != nil {
				a.alert(a.desc, err)
			}
			return decision
		}

		a.mu.Lock()
		a.current = decision.Target
		a.failures = 0
		a.last = decision
		a.mu.Unlock()

		slog.Info("Scaling decision applied",
			"deployment_id", a.desc.ID,
			"reason", decision.Reason,
			"replicas", decision.Target,
			"observed", decision.Observed)
		return decision
	}

	a.mu.Lock()
	a.last = decision
	a.mu.Unlock()

	return decision
}

// decideLocked computes the next target replica count. Missing or stale
// observations hold the current count rather than scaling on absent data.
func (a *Autoscaler) decideLocked(now time.Time) Decision {
	d := Decision{Current: a.current, Target: a.current, Reason: ReasonHold, At: now}

	obs := a.latest
	if obs == nil || now.Sub(obs.At) > 2*a.cfg.TickInterval {
		return d
	}
	d.Observed = obs.Utilization

	sc := a.desc.Scaling
	upper := sc.TargetUtilization + a.cfg.HysteresisBand
	lower := sc.TargetUtilization - a.cfg.HysteresisBand

	switch {
	case obs.Utilization > upper:
		ideal := idealReplicas(a.current, obs.Utilization, sc.TargetUtilization)
		if ideal <= a.current {
			ideal = a.current + 1
		}
		d.Target = a.current + min(ideal-a.current, a.maxStep())
		d.Reason = ReasonScaleUp
	case obs.Utilization < lower:
		ideal := idealReplicas(a.current, obs.Utilization, sc.TargetUtilization)
		if ideal >= a.current {
			ideal = a.current - 1
		}
		d.Target = a.current - min(a.current-ideal, a.maxStep())
		d.Reason = ReasonScaleDown
	}

	if d.Target > sc.MaxReplicas {
		d.Target = sc.MaxReplicas
	}
	if d.Target < sc.MinReplicas {
		d.Target = sc.MinReplicas
	}
	if d.Target == a.current {
		d.Reason = ReasonHold
	}

	return d
}

// idleExpiredLocked tracks how long load has been zero and reports whether
// the inactivity window has passed. Auto-shutdown never applies to prod.
func (a *Autoscaler) idleExpiredLocked(now time.Time) bool {
	obs := a.latest
	fresh := obs != nil && now.Sub(obs.At) <= 2*a.cfg.TickInterval

	if !fresh || obs.Utilization > 0 || obs.RequestRate > 0 {
		a.idleSince = time.Time{}
		return false
	}

	if a.idleSince.IsZero() {
		a.idleSince = now
		return false
	}

	return a.desc.Tier != env.Prod && now.Sub(a.idleSince) >= a.cfg.InactivityWindow
}

// maxStep caps a single tick's movement to a fraction of the current count,
// so the loop converges toward extremes instead of jumping to them.
func (a *Autoscaler) maxStep() int {
	base := a.current
	if base < 1 {
		base = 1
	}

	step := int(math.Ceil(a.cfg.StepFraction * float64(base)))
	if step < 1 {
		step = 1
	}

	return step
}

// idealReplicas estimates the replica count that would bring utilization back
// to the target, assuming load scales inversely with replicas.
func idealReplicas(current int, utilization, target float64) int {
	if current < 1 {
		if utilization > 0 {
			return 1
		}
		return 0
	}

	return int(math.Ceil(float64(current) * utilization / target))
}
