package logstream

import "context"

// Sink consumes ordered batches of records. The hub invokes Consume from a
// single goroutine, so implementations need no internal locking; they must
// honor ctx deadlines and tolerate repeated Close calls.
type Sink interface {
	Consume(ctx context.Context, batch []Record) error
	Close(ctx context.Context) error
}

// Emitter publishes individual records; Hub satisfies this interface so
// workers stay agnostic about buffering and sink fan-out.
type Emitter interface {
	Emit(rec Record)
}
