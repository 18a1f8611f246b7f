package bus

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// NamedReceiver is a receiver together with the transport name recorded in
// the ReceivedStamp of its envelopes.
type NamedReceiver struct {
	Name     string
	Receiver Receiver
}

// Worker consumes envelopes from receivers and dispatches each of them on a
// bus in its own unit of work.
type Worker struct {
	bus       Bus
	receivers []NamedReceiver
	hooks     *hook.Registry
	logger    Logger
	cfg       WorkerConfig
}

// NewWorker creates a worker. hooks and logger may be nil.
func NewWorker(cfg WorkerConfig, b Bus, receivers []NamedReceiver, hooks *hook.Registry, logger Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	return &Worker{bus: b, receivers: receivers, hooks: hooks, logger: logger, cfg: cfg}
}

// Run consumes from all receivers until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range w.receivers {
		g.Go(func() error {
			return w.consume(ctx, r)
		})
	}
	return g.Wait()
}

func (w *Worker) consume(ctx context.Context, r NamedReceiver) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		envs, err := r.Receiver.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logWarn(ctx, "failed to fetch messages", err, map[string]interface{}{
				"transport": r.Name,
			})
		}
		for _, env := range envs {
			_ = w.Process(ctx, r.Name, r.Receiver, env)
		}
		if len(envs) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Process dispatches env as received from transport and acknowledges or
// rejects it depending on the outcome.
func (w *Worker) Process(ctx context.Context, transport string, r Receiver, env *Envelope) error {
	uctx := w.hooks.BeginUnit(ctx)

	_, err := w.bus.Dispatch(uctx, env, ReceivedStamp{Transport: transport})
	if err != nil {
		w.logError(uctx, "failed to handle message", err, map[string]interface{}{
			"transport":    transport,
			"message_type": env.MessageType(),
		})
		if rerr := r.Reject(ctx, env); rerr != nil {
			w.logWarn(ctx, "failed to reject message", rerr, nil)
		}
		return err
	}

	if aerr := r.Ack(ctx, env); aerr != nil {
		w.logWarn(ctx, "failed to acknowledge message", aerr, nil)
		return aerr
	}
	return nil
}

func (w *Worker) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if w.logger != nil {
		w.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (w *Worker) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if w.logger != nil {
		w.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
