package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CounterReconciler re-derives every course's registered counter.
type CounterReconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// Reconciler runs CounterReconciler on a fixed interval.
type Reconciler struct {
	target   CounterReconciler
	interval time.Duration
	log      zerolog.Logger
}

func NewReconciler(target CounterReconciler, interval time.Duration, log zerolog.Logger) *Reconciler {
	return &Reconciler{target: target, interval: interval, log: log}
}

// Run sweeps until ctx is cancelled. A non-positive interval disables it.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			drifted, err := r.target.ReconcileAll(ctx)
			if err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Msg("reconcile sweep failed")
				continue
			}
			r.log.Debug().Int("drifted", drifted).Msg("reconcile sweep finished")
		}
	}
}
