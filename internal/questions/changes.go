package questions

import (
	"context"
	"log/slog"
	"sync"

	"qbridge/internal/logging"
	"qbridge/internal/objects"
)

// EventQuestionsChanged is the only event type; it carries no payload.
const EventQuestionsChanged = "QuestionsChanged"

// Event tells a subscriber to re-list.
type Event struct {
	Type string `json:"type"`
}

// SignalSource is the part of objects.Directory the merger subscribes to.
type SignalSource interface {
	SubscribeAdded(ctx context.Context) (objects.Subscription, error)
	SubscribeRemoved(ctx context.Context) (objects.Subscription, error)
}

// Merger combines the added and removed signal streams into one.
type Merger struct {
	source SignalSource
	logger *slog.Logger
}

// NewMerger builds a merger over source.
func NewMerger(source SignalSource, logger *slog.Logger) *Merger {
	return &Merger{
		source: source,
		logger: logging.NewComponentLogger(logger, "changes"),
	}
}

// Changes opens both subscriptions and returns a channel carrying one Event per
// signal from either side, in arrival order, without merging. The channel is
// closed when ctx ends or when either source ends; in the latter case the
// other subscription is released too.
func (m *Merger) Changes(ctx context.Context) (<-chan Event, error) {
	ctx, cancel := context.WithCancel(ctx)

	added, err := m.source.SubscribeAdded(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	removed, err := m.source.SubscribeRemoved(ctx)
	if err != nil {
		_ = added.Close()
		cancel()
		return nil, err
	}

	out := make(chan Event)
	var wg sync.WaitGroup
	wg.Add(2)
	go m.forward(ctx, cancel, &wg, "added", added, out)
	go m.forward(ctx, cancel, &wg, "removed", removed, out)
	go func() {
		wg.Wait()
		_ = added.Close()
		_ = removed.Close()
		close(out)
		m.logger.Debug("change stream closed", logging.String(logging.FieldEventType, "change_stream_closed"))
	}()

	m.logger.Debug("change stream opened", logging.String(logging.FieldEventType, "change_stream_opened"))
	return out, nil
}

func (m *Merger) forward(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, name string, sub objects.Subscription, out chan<- Event) {
	defer wg.Done()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Events():
			if !ok {
				if ctx.Err() == nil {
					logging.WarnWithContext(m.logger, "change source ended", "change_source_closed",
						logging.String("source", name),
						logging.String(logging.FieldErrorHint, "check that the installer bus is still reachable"),
						logging.String(logging.FieldImpact, "subscribers stop receiving question changes"),
					)
				}
				return
			}
			select {
			case out <- Event{Type: EventQuestionsChanged}:
			case <-ctx.Done():
				return
			}
		}
	}
}
