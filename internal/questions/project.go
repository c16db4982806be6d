package questions

import (
	"context"

	"github.com/godbus/dbus/v5"

	"qbridge/internal/objects"
)

func projectGeneric(ctx context.Context, remote Remote, path dbus.ObjectPath) (Question, error) {
	view := remote.Properties(path, GenericInterface)
	var (
		q   GenericQuestion
		err error
	)
	if q.ID, err = read[uint32](ctx, view, path, GenericInterface, "Id"); err != nil {
		return Question{}, err
	}
	if q.Class, err = read[string](ctx, view, path, GenericInterface, "Class"); err != nil {
		return Question{}, err
	}
	if q.Text, err = read[string](ctx, view, path, GenericInterface, "Text"); err != nil {
		return Question{}, err
	}
	if q.Options, err = read[[]string](ctx, view, path, GenericInterface, "Options"); err != nil {
		return Question{}, err
	}
	if q.DefaultOption, err = read[string](ctx, view, path, GenericInterface, "DefaultOption"); err != nil {
		return Question{}, err
	}
	if q.Data, err = read[map[string]string](ctx, view, path, GenericInterface, "Data"); err != nil {
		return Question{}, err
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	if q.Data == nil {
		q.Data = map[string]string{}
	}
	return Question{Generic: q}, nil
}

func projectWithPassword(ctx context.Context, remote Remote, path dbus.ObjectPath) (Question, error) {
	q, err := projectGeneric(ctx, remote, path)
	if err != nil {
		return Question{}, err
	}
	password, err := read[string](ctx, remote.Properties(path, PasswordInterface), path, PasswordInterface, "Password")
	if err != nil {
		return Question{}, err
	}
	q.WithPassword = &QuestionWithPassword{Password: password}
	return q, nil
}

func read[T any](ctx context.Context, view objects.PropertyView, path dbus.ObjectPath, iface, name string) (T, error) {
	value, err := view.Get(ctx, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return objects.Decode[T](value, path, iface, name)
}
