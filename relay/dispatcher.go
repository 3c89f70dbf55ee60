package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.skobk.in/skobkin/telegram-relay-bot/storage"
)

// Registry is the lookup side of the subscription storage
type Registry interface {
	ListSubscriptionsBySource(ctx context.Context, sourceID string) ([]storage.Subscription, error)
}

// Transport delivers a message to a destination chat
type Transport interface {
	Forward(ctx context.Context, ev *Event, dest Destination) error
	Copy(ctx context.Context, ev *Event, dest Destination) error
}

// Stage is the last delivery primitive attempted
type Stage string

const (
	StageForward Stage = "forward"
	StageCopy    Stage = "copy"
)

// State is the terminal state of a single delivery
type State string

const (
	StateDelivered State = "delivered"
	StateFailed    State = "failed"
)

// DeliveryFailed describes a delivery where both forward and copy failed
type DeliveryFailed struct {
	Destination string
	Stage       Stage
	Cause       error
}

func (e *DeliveryFailed) Error() string {
	return fmt.Sprintf("delivery to %s failed at %s: %v", e.Destination, e.Stage, e.Cause)
}

func (e *DeliveryFailed) Unwrap() error {
	return e.Cause
}

// Outcome is the result of delivering one event for one subscription
type Outcome struct {
	Subscription storage.Subscription
	State        State
	Stage        Stage
	Err          *DeliveryFailed
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger; slog.Default() is used otherwise
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics enables delivery counters
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithParallelism delivers to up to n destinations at once. Values below 2 keep deliveries sequential.
func WithParallelism(n int) Option {
	return func(d *Dispatcher) {
		if n < 1 {
			n = 1
		}
		d.parallelism = n
	}
}

// WithDestinationTopicOnCopy makes the copy fallback target the destination's topic
// instead of the thread the event came from.
func WithDestinationTopicOnCopy() Option {
	return func(d *Dispatcher) {
		d.copyToDestinationTopic = true
	}
}

// Dispatcher relays inbound events to subscribed destinations
type Dispatcher struct {
	registry  Registry
	transport Transport
	logger    *slog.Logger
	metrics   *Metrics

	parallelism            int
	copyToDestinationTopic bool
}

func NewDispatcher(registry Registry, transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		transport:   transport,
		logger:      slog.Default(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers ev to every subscription of its source.
// Only a registry failure is returned; delivery failures are reported in the outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) ([]Outcome, error) {
	sourceKey := SourceKey(ev.ChatID, ev.ThreadID)

	subs, err := d.registry.ListSubscriptionsBySource(ctx, sourceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscriptions for %s: %w", sourceKey, err)
	}
	if len(subs) == 0 {
		return nil, nil
	}

	logger := d.logger.With(
		"dispatch_id", uuid.NewString(),
		"source_key", sourceKey,
		"message_id", ev.MessageID,
		"kind", string(ev.Kind),
	)
	logger.Info("relay: Event matched subscriptions", "subscriptions", len(subs))

	if d.metrics != nil {
		d.metrics.EventsMatched.Inc()
	}

	outcomes := make([]Outcome, len(subs))

	if d.parallelism > 1 && len(subs) > 1 {
		var g errgroup.Group
		g.SetLimit(d.parallelism)
		for i := range subs {
			i := i
			g.Go(func() error {
				outcomes[i] = d.deliver(ctx, logger, ev, subs[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range subs {
			outcomes[i] = d.deliver(ctx, logger, ev, subs[i])
		}
	}

	if d.metrics != nil {
		for _, o := range outcomes {
			d.metrics.recordOutcome(o)
		}
	}

	return outcomes, nil
}

func (d *Dispatcher) deliver(ctx context.Context, logger *slog.Logger, ev *Event, sub storage.Subscription) Outcome {
	dest := ParseDestinationKey(sub.DestinationID)
	logger = logger.With("subscription_id", sub.ID, "destination", sub.DestinationID)

	forwardErr := d.transport.Forward(ctx, ev, dest)
	if forwardErr == nil {
		logger.Debug("relay: Message forwarded")
		return Outcome{Subscription: sub, State: StateDelivered, Stage: StageForward}
	}

	logger.Warn("relay: Forward failed, falling back to copy", "error", forwardErr)

	copyDest := Destination{ChatID: dest.ChatID, ThreadID: ev.ThreadID}
	if d.copyToDestinationTopic {
		copyDest.ThreadID = dest.ThreadID
	}

	copyErr := d.transport.Copy(ctx, ev, copyDest)
	if copyErr == nil {
		logger.Debug("relay: Message copied")
		return Outcome{Subscription: sub, State: StateDelivered, Stage: StageCopy}
	}

	failure := &DeliveryFailed{Destination: dest.ChatID, Stage: StageCopy, Cause: copyErr}
	logger.Error("relay: Delivery failed",
		"chat_id", dest.ChatID,
		"source_chat_id", ev.ChatID,
		"forward_error", forwardErr,
		"error", copyErr,
	)

	return Outcome{Subscription: sub, State: StateFailed, Stage: StageCopy, Err: failure}
}
