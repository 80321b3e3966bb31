package timeline

import "context"

// A gate limits how many fetch goroutines touch I/O at a time. Goroutines
// enter by calling enter() and must balance it with leave().
type gate chan struct{}

func newGate(n int) gate {
	return gate(make(chan struct{}, n))
}

// enter blocks until a slot is free or the context is cancelled.
func (g gate) enter(ctx context.Context) error {
	select {
	case g <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g gate) leave() {
	<-g
}
