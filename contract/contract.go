// Package contract holds the small interfaces crossed between the runtime
// and the transport layer, so neither imports the other.
package contract

import (
	"context"
	"reflect"
)

// Sink is the outbound side of one connection. Send must never block the
// caller: implementations enqueue and drop on a full buffer. Kick severs
// the transport; the resulting read error feeds the normal disconnect path.
type Sink interface {
	Send(event string, data any)
	Kick()
}

// Worker is a supervised long-running loop.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerName uses reflection to retrieve the type name of a worker for
// supervision logs, avoiding manual naming on the Worker interface.
func WorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
