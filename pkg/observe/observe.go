// Package observe wires owning components to a cascade subscription
// tree. A Root plays the provider role at the top of the tree; an
// Observer watches a selected slice of the state at any level below it.
//
// Both types follow the mount/unmount lifecycle contract: build first,
// attach with Mount, detach with Unmount. State changes that land
// between construction and Mount are covered by a single snapshot
// comparison after attaching: only the net change is detected, never
// replayed per intermediate state.
//
// Like the subscription tree it drives, this package must be used from
// the single goroutine that dispatches state changes.
package observe

import "github.com/cascade-dev/cascade/pkg/cascade"

// Root owns the root subscription of a tree. Its change handler is a
// pure relay: every store change is forwarded to nested subscriptions
// unconditionally, top-down.
type Root struct {
	store   cascade.Store
	sub     *cascade.Subscription
	prev    any
	mounted bool
}

// NewRoot builds the root observer for a store. The pre-mount state
// snapshot is captured here.
func NewRoot(store cascade.Store, opts ...cascade.Option) *Root {
	sub := cascade.New(store, opts...)
	sub.OnStateChange = sub.NotifyNestedSubs

	return &Root{
		store: store,
		sub:   sub,
		prev:  store.GetState(),
	}
}

// Subscription returns the root subscription, the parent for observers
// one level below.
func (r *Root) Subscription() *cascade.Subscription {
	return r.sub
}

// Mount attaches the root to the store. If the state moved between
// construction (or the previous Unmount) and now, nested subscriptions
// are notified once to cover the gap. Calling Mount while mounted is a
// no-op.
func (r *Root) Mount() {
	if r.mounted {
		return
	}
	r.mounted = true

	r.sub.OnStateChange = r.sub.NotifyNestedSubs
	r.sub.TrySubscribe()

	cur := r.store.GetState()
	if !defaultEqual(r.prev, cur) {
		r.prev = cur
		r.sub.NotifyNestedSubs()
	}
}

// Unmount detaches the root from the store and snapshots the state so a
// later Mount can detect changes made while detached. Calling Unmount
// while unmounted is a no-op.
func (r *Root) Unmount() {
	if !r.mounted {
		return
	}
	r.mounted = false

	r.prev = r.store.GetState()
	r.sub.TryUnsubscribe()
	r.sub.OnStateChange = nil
}

// Observer watches the slice of state chosen by its selector and fires
// onChange only when that slice actually changes. Regardless of whether
// it fires, every upstream change is relayed to this observer's own
// nested subscriptions, preserving the top-down ordering for deeper
// levels.
type Observer[T any] struct {
	store    cascade.Store
	sub      *cascade.Subscription
	selector func(state any) T
	equals   func(a, b T) bool
	onChange func(selected T)
	selected T
	mounted  bool
}

// ObserverOption configures an Observer.
type ObserverOption[T any] func(*Observer[T])

// WithEquals sets a custom equality function for the selected value.
func WithEquals[T any](fn func(a, b T) bool) ObserverOption[T] {
	return func(o *Observer[T]) {
		if fn != nil {
			o.equals = fn
		}
	}
}

// NewObserver builds an observer nested under parent (a Root's or
// another Observer's subscription). The initial selected value is
// computed here, before any subscription exists.
func NewObserver[T any](store cascade.Store, parent *cascade.Subscription, selector func(state any) T, onChange func(selected T), opts ...ObserverOption[T]) *Observer[T] {
	o := &Observer[T]{
		store:    store,
		sub:      cascade.NewNested(parent),
		selector: selector,
		equals:   defaultEqual[T],
		onChange: onChange,
		selected: selector(store.GetState()),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.sub.OnStateChange = o.checkForUpdates
	return o
}

// Subscription returns this observer's subscription, the parent for
// observers one level deeper.
func (o *Observer[T]) Subscription() *cascade.Subscription {
	return o.sub
}

// Selected returns the most recently selected value.
func (o *Observer[T]) Selected() T {
	return o.selected
}

// checkForUpdates re-selects, fires onChange on a real difference, and
// always relays to nested subscriptions.
func (o *Observer[T]) checkForUpdates() {
	cur := o.selector(o.store.GetState())
	if !o.equals(o.selected, cur) {
		o.selected = cur
		if o.onChange != nil {
			o.onChange(cur)
		}
	}
	o.sub.NotifyNestedSubs()
}

// Mount attaches the observer under its parent, then checks once for a
// change that landed between construction (or the previous Unmount) and
// now. Calling Mount while mounted is a no-op.
func (o *Observer[T]) Mount() {
	if o.mounted {
		return
	}
	o.mounted = true

	o.sub.OnStateChange = o.checkForUpdates
	o.sub.TrySubscribe()
	o.checkForUpdates()
}

// Unmount detaches the observer. Calling Unmount while unmounted is a
// no-op.
func (o *Observer[T]) Unmount() {
	if !o.mounted {
		return
	}
	o.mounted = false

	o.sub.TryUnsubscribe()
	o.sub.OnStateChange = nil
}
