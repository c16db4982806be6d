package questions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"qbridge/internal/logging"
	"qbridge/internal/objects"
)

// Remote is the part of objects.Directory the question directory reads from.
type Remote interface {
	ListManaged(ctx context.Context) ([]objects.ManagedObject, error)
	Properties(path dbus.ObjectPath, iface string) objects.PropertyView
}

// Directory lists questions and submits answers. It keeps no state between
// calls and is safe for concurrent use.
type Directory struct {
	remote Remote
	root   dbus.ObjectPath
	logger *slog.Logger
}

// NewDirectory binds a directory to the question root.
func NewDirectory(remote Remote, root dbus.ObjectPath, logger *slog.Logger) *Directory {
	return &Directory{
		remote: remote,
		root:   root,
		logger: logging.NewComponentLogger(logger, "questions"),
	}
}

// List enumerates the root and projects every child. A failure on any single
// object fails the whole call.
func (d *Directory) List(ctx context.Context) ([]Question, error) {
	managed, err := d.remote.ListManaged(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]Question, 0, len(managed))
	for _, obj := range managed {
		rule := ruleFor(obj.Interfaces)
		q, err := rule.project(ctx, d.remote, obj.Path)
		if err != nil {
			d.logger.Debug("question projection failed",
				logging.String(logging.FieldEventType, "question_projection_failed"),
				logging.String(logging.FieldObjectPath, string(obj.Path)),
				logging.String("variant", rule.variant.String()),
				logging.Error(err),
			)
			return nil, err
		}
		result = append(result, q)
	}
	d.logger.Debug("questions listed",
		logging.String(logging.FieldEventType, "questions_listed"),
		logging.Int("count", len(result)),
	)
	return result, nil
}

// SubmitAnswer writes answer to the question with the given id. When the
// answer carries a password it is written first; the generic answer is only
// written once the password write succeeded. The answer text is forwarded
// as given, including an empty one.
func (d *Directory) SubmitAnswer(ctx context.Context, id uint32, answer Answer) error {
	path := d.questionPath(id)

	if answer.WithPassword != nil {
		if err := d.remote.Properties(path, PasswordInterface).Set(ctx, "Password", answer.WithPassword.Password); err != nil {
			return err
		}
	}
	if err := d.remote.Properties(path, GenericInterface).Set(ctx, "Answer", answer.Generic.Answer); err != nil {
		return err
	}

	d.logger.Info("answer submitted",
		logging.String(logging.FieldEventType, "answer_submitted"),
		logging.Uint32(logging.FieldQuestionID, id),
		logging.String(logging.FieldObjectPath, string(path)),
		logging.Bool("with_password", answer.WithPassword != nil),
	)
	return nil
}

func (d *Directory) questionPath(id uint32) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/%d", d.root, id))
}
