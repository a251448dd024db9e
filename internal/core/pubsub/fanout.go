package pubsub

import (
	"context"
	"errors"
)

type fanout []Publisher

// Fanout returns a Publisher that delivers to every non-nil publisher in order.
// All publishers are attempted; their errors are joined.
func Fanout(pubs ...Publisher) Publisher {
	var f fanout
	for _, p := range pubs {
		if p != nil {
			f = append(f, p)
		}
	}
	return f
}

func (f fanout) Publish(ctx context.Context, subject string, data []byte) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, subject, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }
func (Nop) Close() error                                  { return nil }
