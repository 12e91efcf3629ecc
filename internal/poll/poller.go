// Package poll re-reads state on a fixed interval and reports changes. It
// backs the streaming endpoints that keep chat and notification views
// fresh without a push channel.
package poll

import (
	"context"
	"reflect"
	"time"
)

// Poller calls Fetch immediately and then every Interval until the context
// is done. onChange only sees values that differ from the last one
// delivered. Readers must tolerate values up to one Interval stale.
type Poller[T any] struct {
	Interval time.Duration
	Fetch    func(ctx context.Context) (T, error)
	// Equal compares two fetched values. reflect.DeepEqual when nil.
	Equal func(a, b T) bool
	// OnError is told about failed fetches; polling continues.
	OnError func(err error)
}

// Run blocks until ctx is done. It returns ctx.Err() or the first error
// returned by onChange.
func (p *Poller[T]) Run(ctx context.Context, onChange func(T) error) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	equal := p.Equal
	if equal == nil {
		equal = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}

	var (
		last T
		have bool
	)
	tick := func() error {
		v, err := p.Fetch(ctx)
		if err != nil {
			if ctx.Err() == nil && p.OnError != nil {
				p.OnError(err)
			}
			return nil
		}
		if have && equal(last, v) {
			return nil
		}
		last, have = v, true
		return onChange(v)
	}

	if err := tick(); err != nil {
		return err
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := tick(); err != nil {
				return err
			}
		}
	}
}
