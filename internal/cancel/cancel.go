// Package cancel implements the resident self-cancel command. Only one
// cancel may be in flight per Canceller; a second request while one is
// pending is rejected rather than queued.
package cancel

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"request-tracker/internal/apperr"
	"request-tracker/internal/engine"
	"request-tracker/internal/model"
)

// State is the per-record cancel lifecycle.
type State string

const (
	StateActive       State = "active"
	StateCancelling   State = "cancelling"
	StateCancelled    State = "cancelled"
	StateCancelFailed State = "cancel_failed"
)

const (
	CodeCancelled    = "REQUEST_CANCELLED"
	CodeCancelFailed = "REQUEST_CANCEL_FAILED"
)

// Dispatcher sends the cancel to the endpoint owning kind.
type Dispatcher interface {
	Cancel(ctx context.Context, kind model.Kind, id string) error
}

// Notifier surfaces the outcome to the resident.
type Notifier interface {
	Notify(n model.Notification)
}

// InvalidateFunc refetches the aggregate after a successful cancel.
type InvalidateFunc func(ctx context.Context) error

// Outcome describes one Cancel call.
type Outcome struct {
	Kind         model.Kind
	ID           string
	State        State
	Notification model.Notification
}

type Canceller struct {
	dispatcher Dispatcher
	notifier   Notifier
	logger     *zap.Logger

	mu         sync.Mutex
	cancelling string
}

func New(dispatcher Dispatcher, notifier Notifier, logger *zap.Logger) *Canceller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Canceller{dispatcher: dispatcher, notifier: notifier, logger: logger}
}

// Cancel runs the command for rec and, on success, calls invalidate to
// refetch the aggregate. An unconfirmed prompt is a no-op that leaves the
// record active.
func (c *Canceller) Cancel(ctx context.Context, rec model.Record, confirmed bool, invalidate InvalidateFunc) (Outcome, error) {
	kind, id, ok := rec.CancelTarget()
	if !ok {
		return Outcome{Kind: rec.Kind, State: StateActive}, apperr.New(apperr.CodeNotEligible, "This request has no id to cancel")
	}
	out := Outcome{Kind: kind, ID: id, State: StateActive}
	if !confirmed {
		return out, nil
	}
	if !engine.CanCancel(rec) {
		return out, apperr.New(apperr.CodeNotEligible, "This request can no longer be cancelled")
	}

	key := slotKey(kind, id)
	if !c.acquire(key) {
		return out, apperr.New(apperr.CodeCancelInFlight, "Another cancellation is still in progress")
	}
	c.logger.Info("cancelling request", zap.String("kind", string(kind)), zap.String("id", id))

	err := c.dispatcher.Cancel(ctx, kind, id)
	c.release()

	if err != nil {
		c.logger.Warn("cancel failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		out.State = StateCancelFailed
		out.Notification = model.Notification{
			Level:   model.LevelError,
			Code:    CodeCancelFailed,
			Message: "Failed to cancel request. Please try again.",
		}
		c.notifier.Notify(out.Notification)
		return out, apperr.Wrap(apperr.CodeCancelFailed, "Failed to cancel request", err)
	}

	out.State = StateCancelled
	out.Notification = model.Notification{
		Level:   model.LevelSuccess,
		Code:    CodeCancelled,
		Message: "Request cancelled",
	}
	if invalidate != nil {
		if err := invalidate(ctx); err != nil {
			c.logger.Warn("refetch after cancel failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		}
	}
	c.notifier.Notify(out.Notification)
	return out, nil
}

// State reports whether the record is the one currently being cancelled.
func (c *Canceller) State(kind model.Kind, id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelling != "" && c.cancelling == slotKey(kind, id) {
		return StateCancelling
	}
	return StateActive
}

// Busy reports whether any cancel is in flight.
func (c *Canceller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelling != ""
}

func (c *Canceller) acquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelling != "" {
		return false
	}
	c.cancelling = key
	return true
}

func (c *Canceller) release() {
	c.mu.Lock()
	c.cancelling = ""
	c.mu.Unlock()
}

func slotKey(kind model.Kind, id string) string {
	return string(kind) + ":" + id
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(note model.Notification) {
	if note.Level == model.LevelError {
		n.Logger.Warn(note.Message, zap.String("code", note.Code))
		return
	}
	n.Logger.Info(note.Message, zap.String("code", note.Code))
}
