package cascade

// listener is one registered callback in a collection. Listeners are
// doubly linked so that an unsubscribe handle can unlink its node in
// O(1) without scanning, in any removal order.
type listener struct {
	callback func()
	prev     *listener
	next     *listener
}

// listenerCollection is the ordered set of callbacks registered at one
// subscription. Two implementations exist: the real linked collection
// and a stateless null object used while a subscription is disconnected,
// so that notifying a not-yet-connected subscription is always safe.
type listenerCollection interface {
	// subscribe appends fn at the tail and returns an idempotent
	// unsubscribe handle closing over the appended node.
	subscribe(fn func()) (unsubscribe func())

	// notify invokes every live callback once, head to tail, inside the
	// batch wrapper. Listeners removed before being visited are skipped;
	// listeners removed after being visited are unaffected.
	notify()

	// get returns a point-in-time snapshot of the live listeners in
	// order. Introspection only; dispatch never uses it.
	get() []*listener

	// clear resets the collection to empty without invoking callbacks.
	clear()
}

// nullListeners is the collection of a disconnected subscription.
type nullListeners struct{}

func (nullListeners) subscribe(func()) func() { return func() {} }
func (nullListeners) notify()                 {}
func (nullListeners) get() []*listener        { return nil }
func (nullListeners) clear()                  {}

// listenerList is the live doubly linked collection.
type listenerList struct {
	first *listener
	last  *listener
	batch BatchFunc
}

func newListenerList(batch BatchFunc) *listenerList {
	if batch == nil {
		batch = immediateBatch
	}
	return &listenerList{batch: batch}
}

func (l *listenerList) subscribe(fn func()) func() {
	node := &listener{
		callback: fn,
		prev:     l.last,
	}

	if node.prev != nil {
		node.prev.next = node
	} else {
		l.first = node
	}
	l.last = node

	subscribed := true
	return func() {
		if !subscribed || l.first == nil {
			return
		}
		subscribed = false

		if node.next != nil {
			node.next.prev = node.prev
		} else {
			l.last = node.prev
		}
		if node.prev != nil {
			node.prev.next = node.next
		} else {
			l.first = node.next
		}
	}
}

// notify walks the links as they exist at each step rather than a
// snapshot, so a listener unsubscribing itself or a neighbor mid-pass
// cannot stale the traversal. A panicking callback halts the pass,
// leaving later siblings un-notified for that pass; the collection does
// not recover it.
func (l *listenerList) notify() {
	l.batch(func() {
		for node := l.first; node != nil; node = node.next {
			node.callback()
		}
	})
}

func (l *listenerList) get() []*listener {
	var out []*listener
	for node := l.first; node != nil; node = node.next {
		out = append(out, node)
	}
	return out
}

func (l *listenerList) clear() {
	l.first = nil
	l.last = nil
}
