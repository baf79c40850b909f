package cascade

// Subscription is one tree level's relay point for change notifications.
// The root subscription is the single listener on the store; every other
// subscription is the single listener for its level in its parent's
// collection. Each subscription in turn owns the collection its own
// descendants register into.
//
// A subscription connects upstream lazily and reference-counts the
// reasons to stay connected: every nested listener and an optional
// self-subscription each hold one reason, and the upstream link is torn
// down only when the last reason is released.
type Subscription struct {
	// OnStateChange is invoked whenever the upstream source reports a
	// change. The owner assigns it after construction, typically either
	// NotifyNestedSubs (pure relay) or a handler that first decides what
	// "this level changed" means and then relays. A nil handler drops
	// the notification for this level and everything below it.
	OnStateChange func()

	store  Store         // set only on the root
	parent *Subscription // nil on the root
	batch  BatchFunc

	unsubscribe    func()
	listeners      listenerCollection
	subscriptions  int
	selfSubscribed bool
}

// Option configures a Subscription.
type Option func(*Subscription)

// WithBatch sets the batch wrapper used for this subscription's dispatch
// loop. Nested subscriptions inherit their parent's wrapper unless
// overridden.
func WithBatch(batch BatchFunc) Option {
	return func(s *Subscription) {
		if batch != nil {
			s.batch = batch
		}
	}
}

// New creates the root subscription for a store.
func New(store Store, opts ...Option) *Subscription {
	s := &Subscription{
		store:     store,
		batch:     immediateBatch,
		listeners: nullListeners{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewNested creates a subscription one level below parent. It does not
// connect; the first nested listener or self-subscription does.
func NewNested(parent *Subscription, opts ...Option) *Subscription {
	s := &Subscription{
		parent:    parent,
		batch:     parent.batch,
		listeners: nullListeners{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddNestedSub registers fn as a listener one level below this
// subscription, connecting upstream first if needed. The returned
// cleanup unregisters the listener and releases its connection reason;
// calling it more than once is a no-op.
func (s *Subscription) AddNestedSub(fn func()) (removeNestedSub func()) {
	s.trySubscribe()
	cleanup := s.listeners.subscribe(fn)

	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		cleanup()
		s.tryUnsubscribe()
	}
}

// NotifyNestedSubs dispatches to this subscription's own listeners in
// registration order. Safe to call while disconnected (no-op).
func (s *Subscription) NotifyNestedSubs() {
	s.listeners.notify()
}

// handleChangeWrapper is the callback actually registered upstream. It
// indirects through OnStateChange so the owner can redefine what a
// change at this level means without rewiring the parent link.
func (s *Subscription) handleChangeWrapper() {
	if s.OnStateChange != nil {
		s.OnStateChange()
	}
}

// IsSubscribed reports whether this subscription itself wants
// notifications, as opposed to merely relaying for descendants.
func (s *Subscription) IsSubscribed() bool {
	return s.selfSubscribed
}

// TrySubscribe marks this subscription as self-subscribed and connects
// upstream if not already connected. Calling it while already
// self-subscribed is a no-op.
func (s *Subscription) TrySubscribe() {
	if s.selfSubscribed {
		return
	}
	s.selfSubscribed = true
	s.trySubscribe()
}

// TryUnsubscribe releases the self-subscription. Calling it while not
// self-subscribed is a no-op.
func (s *Subscription) TryUnsubscribe() {
	if !s.selfSubscribed {
		return
	}
	s.selfSubscribed = false
	s.tryUnsubscribe()
}

// trySubscribe takes one connection reason. On the 0→1 edge it
// establishes the upstream link (parent's collection, or the store for
// the root) and swaps in a real listener collection so descendants can
// register.
func (s *Subscription) trySubscribe() {
	s.subscriptions++
	if s.unsubscribe != nil {
		return
	}

	if s.parent != nil {
		s.unsubscribe = s.parent.AddNestedSub(s.handleChangeWrapper)
	} else {
		s.unsubscribe = s.store.Subscribe(s.handleChangeWrapper)
	}
	s.listeners = newListenerList(s.batch)
}

// tryUnsubscribe releases one connection reason. On the 1→0 edge it
// tears down the upstream link and swaps the null collection back in.
// Intermediate decrements while still connected do nothing else.
func (s *Subscription) tryUnsubscribe() {
	s.subscriptions--
	if s.unsubscribe == nil || s.subscriptions != 0 {
		return
	}

	s.unsubscribe()
	s.unsubscribe = nil
	s.listeners.clear()
	s.listeners = nullListeners{}
}
