package sign

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"marquee/internal/logging"
	"marquee/internal/notifications"
)

// supervisor owns the transport session and dispatches queued jobs one at a
// time. It reconnects forever with a fixed delay until its context ends.
type supervisor struct {
	transport      Transport
	queue          *jobQueue
	logger         *slog.Logger
	notifier       notifications.Service
	device         string
	reconnectDelay time.Duration
	sendTimeout    time.Duration

	// observe, when set, sees every dispatched job's result before the
	// submitter unblocks. Stop-drained jobs never pass through it.
	observe func(job *Job, res Result)

	state atomic.Value
	kick  chan struct{}
}

func newSupervisor(transport Transport, queue *jobQueue, logger *slog.Logger, notifier notifications.Service, device string, reconnectDelay, sendTimeout time.Duration) *supervisor {
	s := &supervisor{
		transport:      transport,
		queue:          queue,
		logger:         logging.NewComponentLogger(logger, "supervisor"),
		notifier:       notifier,
		device:         device,
		reconnectDelay: reconnectDelay,
		sendTimeout:    sendTimeout,
		kick:           make(chan struct{}, 1),
	}
	s.state.Store(StateDisconnected)
	return s
}

// State reports the current connection state.
func (s *supervisor) State() State {
	if state, ok := s.state.Load().(State); ok {
		return state
	}
	return StateDisconnected
}

func (s *supervisor) setState(state State) {
	s.state.Store(state)
}

// Kick cuts the current reconnect wait short, typically when the Bluetooth
// adapter reappears or an operator requests an immediate retry.
func (s *supervisor) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// run drives the connect/dispatch cycle until ctx is cancelled. Connection
// failures never propagate to callers; they surface only in logs,
// notifications, and the results of jobs that were mid-send.
func (s *supervisor) run(ctx context.Context) {
	defer s.setState(StateStopping)

	var downSince time.Time
	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(StateConnecting)
		s.logger.Info("connecting to sign", logging.String("device", s.device))

		session, err := s.transport.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.setState(StateDisconnected)
			if downSince.IsZero() {
				downSince = time.Now()
				if notifyErr := s.notifier.NotifySignLost(ctx, s.device, err); notifyErr != nil {
					s.logger.Debug("sign lost notification failed", logging.Error(notifyErr))
				}
			}
			logging.WarnWithContext(s.logger, "connect failed; will retry", "sign_connect_failed",
				logging.Error(err),
				logging.Duration("retry_in", s.reconnectDelay),
				logging.String(logging.FieldErrorHint, "check sign power and Bluetooth adapter"),
				logging.String(logging.FieldImpact, "queued jobs wait until the sign is reachable"),
			)
			s.waitRetry(ctx)
			continue
		}

		s.setState(StateConnected)
		s.logger.Info("sign connected",
			logging.String("device", s.device),
			logging.Int(logging.FieldQueueDepth, s.queue.Depth()),
		)
		var downtime time.Duration
		if !downSince.IsZero() {
			downtime = time.Since(downSince)
		}
		if notifyErr := s.notifier.NotifySignConnected(ctx, s.device, downtime); notifyErr != nil {
			s.logger.Debug("sign connected notification failed", logging.Error(notifyErr))
		}
		downSince = time.Time{}

		dispatchErr := s.dispatch(ctx, session)
		if closeErr := session.Close(); closeErr != nil {
			s.logger.Debug("session close failed", logging.Error(closeErr))
		}
		s.setState(StateDisconnected)

		if ctx.Err() != nil || errors.Is(dispatchErr, ErrStopped) {
			return
		}

		downSince = time.Now()
		if errors.Is(dispatchErr, ErrConnection) {
			if notifyErr := s.notifier.NotifySignLost(ctx, s.device, dispatchErr); notifyErr != nil {
				s.logger.Debug("sign lost notification failed", logging.Error(notifyErr))
			}
			logging.WarnWithContext(s.logger, "sign connection lost; will reconnect", "sign_connection_lost",
				logging.Error(dispatchErr),
				logging.Duration("retry_in", s.reconnectDelay),
				logging.String(logging.FieldImpact, "queued jobs wait until the sign is reachable"),
			)
		} else {
			logging.ErrorWithContext(s.logger, "job dispatch failed; reconnecting", "sign_dispatch_failed",
				logging.Error(dispatchErr),
				logging.String(logging.FieldErrorHint, "check helper binary output"),
			)
		}
		s.waitRetry(ctx)
	}
}

// dispatch sends queued jobs over session until the session fails, the queue
// closes, or ctx ends.
func (s *supervisor) dispatch(ctx context.Context, session Session) error {
	for {
		job, err := s.queue.Dequeue(ctx)
		if err != nil {
			return err
		}
		if err := s.process(ctx, session, job); err != nil {
			return err
		}
	}
}

// process sends one job and resolves its result before reporting the error
// upward, so the submitter always learns the outcome even when the session
// is torn down right after.
func (s *supervisor) process(ctx context.Context, session Session, job *Job) error {
	logger := s.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldKind, string(job.Kind)),
		logging.String(logging.FieldAnimation, job.Name),
	)
	logger.Debug("dispatching job", logging.Duration("queued_for", time.Since(job.EnqueuedAt)))

	// The send is never force-cancelled by shutdown; it runs to its own
	// timeout so a half-written frame is not left on the wire.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendTimeout)
	defer cancel()

	start := time.Now()
	output, err := session.Send(sendCtx, job)
	elapsed := time.Since(start)

	if err != nil {
		s.finish(job, Result{
			OK:      false,
			Kind:    job.Kind,
			Name:    job.Name,
			Path:    job.Path,
			Error:   err.Error(),
			Elapsed: elapsed,
		})
		if !errors.Is(err, ErrConnection) {
			if notifyErr := s.notifier.NotifyJobFailed(ctx, job.Name, err); notifyErr != nil {
				logger.Debug("job failed notification failed", logging.Error(notifyErr))
			}
		}
		return err
	}

	s.finish(job, Result{
		OK:      true,
		Kind:    job.Kind,
		Name:    job.Name,
		Path:    job.Path,
		Output:  output,
		Elapsed: elapsed,
	})
	logger.Info("job dispatched", logging.Duration("elapsed", elapsed))
	return nil
}

// finish runs the observer before resolving so bookkeeping is visible to
// whoever is blocked on the result.
func (s *supervisor) finish(job *Job, res Result) {
	if s.observe != nil {
		s.observe(job, res)
	}
	job.resolve(res)
}

func (s *supervisor) waitRetry(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(s.reconnectDelay):
	case <-s.kick:
		s.logger.Debug("reconnect wait cut short")
	}
}
