// Package notify delivers moderation notices to Discord and NATS.
package notify

import (
	"context"
	"errors"

	"github.com/seanbarr1988/spunkybot/internal/domain"
)

// Notifier publishes one notice. Implementations skip notice types they
// do not handle and return nil for them.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notice) error
}

// Multi fans a notice out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notice) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every notice.
type Nop struct{}

func (Nop) Notify(context.Context, domain.Notice) error { return nil }
