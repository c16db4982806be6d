package notifications

import (
	"context"
	"log/slog"
	"strings"

	"qbridge/internal/logging"
	"qbridge/internal/questions"
)

// Source lists questions and streams change impulses.
type Source interface {
	ListQuestions(ctx context.Context) ([]questions.Question, error)
	Changes(ctx context.Context) (<-chan questions.Event, error)
}

// PendingNotifier publishes one EventQuestionPending per newly pending id.
type PendingNotifier struct {
	source   Source
	notifier Service
	logger   *slog.Logger
	seen     map[uint32]struct{}
}

// NewPendingNotifier binds a notifier to a question source.
func NewPendingNotifier(source Source, notifier Service, logger *slog.Logger) *PendingNotifier {
	return &PendingNotifier{
		source:   source,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "notifications"),
		seen:     map[uint32]struct{}{},
	}
}

// Run subscribes before the first listing so nothing between the two is
// missed, then re-lists on every change. It returns nil when ctx ends or the
// change stream closes.
func (p *PendingNotifier) Run(ctx context.Context) error {
	events, err := p.source.Changes(ctx)
	if err != nil {
		return err
	}
	p.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			p.sweep(ctx)
		}
	}
}

func (p *PendingNotifier) sweep(ctx context.Context) {
	items, err := p.source.ListQuestions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(p.logger, "list questions for notification", "notification_list_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "new questions may not be announced until the next change"),
			)
		}
		return
	}

	current := make(map[uint32]struct{}, len(items))
	for _, q := range items {
		current[q.Generic.ID] = struct{}{}
		if _, ok := p.seen[q.Generic.ID]; ok {
			continue
		}
		payload := Payload{
			"id":            q.Generic.ID,
			"class":         q.Generic.Class,
			"text":          q.Generic.Text,
			"options":       strings.Join(q.Generic.Options, ", "),
			"with_password": q.WithPassword != nil,
		}
		if err := p.notifier.Publish(ctx, EventQuestionPending, payload); err != nil {
			logging.WarnWithContext(p.logger, "publish question notification", "notification_failed",
				logging.Error(err),
				logging.Uint32(logging.FieldQuestionID, q.Generic.ID),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
			continue
		}
		p.logger.Debug("question notification sent",
			logging.String(logging.FieldEventType, "notification_sent"),
			logging.Uint32(logging.FieldQuestionID, q.Generic.ID),
		)
	}
	p.seen = current
}
