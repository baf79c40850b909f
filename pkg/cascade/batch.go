package cascade

// BatchFunc wraps a notification dispatch loop. The subscription tree
// invokes every listener-collection dispatch inside this wrapper so that
// a host environment can coalesce notifications triggered within one
// pass into a single flush. The wrapper must invoke fn at most once and
// may defer it; it must not swallow it.
type BatchFunc func(fn func())

// immediateBatch is the default BatchFunc: it runs the dispatch loop
// synchronously with no coalescing.
func immediateBatch(fn func()) {
	fn()
}

// Batcher is a concrete coalescing BatchFunc provider. Dispatch loops
// triggered while a Run call is in progress are queued and flushed, in
// trigger order, when the outermost Run completes. Outside of Run the
// wrapper degrades to immediate dispatch.
//
// The flush delivers every queued pass: two state changes inside one Run
// produce two dispatch loops at the end, not one. A BatchFunc receives
// opaque dispatch closures with no listener identity attached, so there
// is nothing to deduplicate by; delivering each pass preserves the
// per-change notification semantics of the unbatched path.
//
// Runs can be nested; queued work only flushes when the outermost Run
// returns.
//
// Example:
//
//	b := cascade.NewBatcher()
//	root := cascade.New(store, cascade.WithBatch(b.Batch))
//	...
//	b.Run(func() {
//	    store.Dispatch(a)
//	    store.Dispatch(b)
//	})
//	// nested listeners flushed once per triggered pass, after both dispatches
type Batcher struct {
	depth   int
	pending []func()
}

// NewBatcher creates a Batcher with no run in progress.
func NewBatcher() *Batcher {
	return &Batcher{}
}

// Run executes fn, deferring any dispatch loops routed through Batch
// until the outermost Run returns.
func (b *Batcher) Run(fn func()) {
	b.depth++
	defer func() {
		b.depth--
		if b.depth == 0 {
			b.flush()
		}
	}()

	fn()
}

// Batch is the BatchFunc to hand to a subscription tree. Inside a Run it
// queues fn for the flush; otherwise it invokes fn immediately.
func (b *Batcher) Batch(fn func()) {
	if b.depth > 0 {
		b.pending = append(b.pending, fn)
		return
	}
	fn()
}

// flush runs queued dispatch loops in trigger order. The flush happens
// with no run in progress, so a listener that triggers another
// notification mid-flush dispatches immediately rather than re-queuing.
func (b *Batcher) flush() {
	queued := b.pending
	b.pending = nil
	for _, fn := range queued {
		fn()
	}
}
