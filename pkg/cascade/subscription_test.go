package cascade

import "testing"

// fakeStore is a minimal single-listener state container for tests. It
// records subscribe/unsubscribe traffic so connection edges can be
// asserted exactly.
type fakeStore struct {
	state        any
	listener     func()
	subscribes   int
	unsubscribes int
}

func (f *fakeStore) Subscribe(fn func()) func() {
	f.subscribes++
	f.listener = fn

	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		f.unsubscribes++
		f.listener = nil
	}
}

func (f *fakeStore) GetState() any { return f.state }

// change simulates a state change reaching the store's single listener.
func (f *fakeStore) change(state any) {
	f.state = state
	if f.listener != nil {
		f.listener()
	}
}

func TestRootSubscriptionConnectsLazily(t *testing.T) {
	store := &fakeStore{state: "A"}
	root := New(store)

	if store.subscribes != 0 {
		t.Fatalf("expected no store subscription before first use, got %d", store.subscribes)
	}

	remove := root.AddNestedSub(func() {})
	if store.subscribes != 1 {
		t.Errorf("expected 1 store subscription after first nested sub, got %d", store.subscribes)
	}

	remove()
	if store.unsubscribes != 1 {
		t.Errorf("expected store unsubscribe when last reason released, got %d", store.unsubscribes)
	}
}

func TestNotifyBeforeConnectIsSafe(t *testing.T) {
	store := &fakeStore{}
	root := New(store)

	// Disconnected subscription holds the null collection.
	root.NotifyNestedSubs()
}

func TestNestedListenersFireInOrder(t *testing.T) {
	store := &fakeStore{state: "A"}
	root := New(store)
	root.OnStateChange = root.NotifyNestedSubs
	root.TrySubscribe()

	var log []string
	root.AddNestedSub(func() { log = append(log, "f") })
	root.AddNestedSub(func() { log = append(log, "g") })

	store.change("B")

	if len(log) != 2 || log[0] != "f" || log[1] != "g" {
		t.Errorf("expected [f g] exactly once each, got %v", log)
	}
}

func TestTopDownOrdering(t *testing.T) {
	store := &fakeStore{}
	var log []string

	root := New(store)
	root.OnStateChange = func() {
		log = append(log, "root")
		root.NotifyNestedSubs()
	}
	root.TrySubscribe()

	child := NewNested(root)
	child.OnStateChange = func() {
		log = append(log, "child")
		child.NotifyNestedSubs()
	}
	child.TrySubscribe()

	grandchild := NewNested(child)
	grandchild.OnStateChange = func() {
		log = append(log, "grandchild")
		grandchild.NotifyNestedSubs()
	}
	grandchild.TrySubscribe()

	// A sibling of child, registered after it.
	sibling := NewNested(root)
	sibling.OnStateChange = func() {
		log = append(log, "sibling")
		sibling.NotifyNestedSubs()
	}
	sibling.TrySubscribe()

	store.change(1)

	want := []string{"root", "child", "grandchild", "sibling"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
}

func TestDescendantReachedOnlyThroughItsParent(t *testing.T) {
	store := &fakeStore{}

	root := New(store)
	root.OnStateChange = root.NotifyNestedSubs
	root.TrySubscribe()

	child := NewNested(root)
	child.OnStateChange = child.NotifyNestedSubs

	hCalls := 0
	removeH := child.AddNestedSub(func() { hCalls++ })

	store.change(1)
	if hCalls != 1 {
		t.Fatalf("expected h to fire once via child relay, got %d", hCalls)
	}

	// Removing child's last reason detaches child from root; a further
	// root-level change must not reach h.
	removeH()
	store.change(2)
	if hCalls != 1 {
		t.Errorf("expected h not to fire after child detached, got %d calls", hCalls)
	}
}

func TestReferenceCountedDetachAndReconnect(t *testing.T) {
	store := &fakeStore{}
	root := New(store)

	removeA := root.AddNestedSub(func() {})
	removeB := root.AddNestedSub(func() {})
	if store.subscribes != 1 {
		t.Fatalf("expected a single upstream subscribe for two reasons, got %d", store.subscribes)
	}

	removeA()
	if store.unsubscribes != 0 {
		t.Errorf("expected no unsubscribe while a reason remains, got %d", store.unsubscribes)
	}

	removeB()
	if store.unsubscribes != 1 {
		t.Errorf("expected exactly one unsubscribe at count zero, got %d", store.unsubscribes)
	}

	// Reconnecting re-subscribes exactly once more.
	root.AddNestedSub(func() {})
	if store.subscribes != 2 {
		t.Errorf("expected one new subscribe on reconnection, got %d total", store.subscribes)
	}
}

func TestRemoveNestedSubIdempotent(t *testing.T) {
	store := &fakeStore{}
	root := New(store)

	remove := root.AddNestedSub(func() {})
	root.AddNestedSub(func() {})

	remove()
	remove()
	remove()

	// Only one reason was released; the upstream link must survive.
	if store.unsubscribes != 0 {
		t.Errorf("repeated cleanup released extra reasons: %d unsubscribes", store.unsubscribes)
	}
}

func TestSelfSubscribeIdempotent(t *testing.T) {
	store := &fakeStore{}
	root := New(store)

	root.TrySubscribe()
	root.TrySubscribe()

	if !root.IsSubscribed() {
		t.Error("expected IsSubscribed true after TrySubscribe")
	}
	if store.subscribes != 1 {
		t.Errorf("expected one upstream subscribe, got %d", store.subscribes)
	}

	// Exactly one paired TryUnsubscribe fully detaches.
	root.TryUnsubscribe()
	if root.IsSubscribed() {
		t.Error("expected IsSubscribed false after TryUnsubscribe")
	}
	if store.unsubscribes != 1 {
		t.Errorf("expected one upstream unsubscribe, got %d", store.unsubscribes)
	}

	root.TryUnsubscribe() // extra calls are no-ops
	if store.unsubscribes != 1 {
		t.Errorf("extra TryUnsubscribe released upstream again: %d", store.unsubscribes)
	}
}

func TestSelfAndNestedReasonsAreIndependent(t *testing.T) {
	store := &fakeStore{}
	root := New(store)

	root.TrySubscribe()
	remove := root.AddNestedSub(func() {})

	root.TryUnsubscribe()
	if store.unsubscribes != 0 {
		t.Error("nested reason should keep the upstream link alive")
	}

	remove()
	if store.unsubscribes != 1 {
		t.Errorf("expected teardown when last reason released, got %d", store.unsubscribes)
	}
}

func TestNilOnStateChangeDropsNotification(t *testing.T) {
	store := &fakeStore{}
	root := New(store)
	root.TrySubscribe()

	calls := 0
	root.AddNestedSub(func() { calls++ })

	// No handler assigned: the upstream notification stops at this level.
	store.change(1)
	if calls != 0 {
		t.Errorf("expected no nested dispatch without a change handler, got %d", calls)
	}

	root.OnStateChange = root.NotifyNestedSubs
	store.change(2)
	if calls != 1 {
		t.Errorf("expected nested dispatch once handler assigned, got %d", calls)
	}
}

func TestListenerUnsubscribesItselfDuringRootPass(t *testing.T) {
	store := &fakeStore{}
	root := New(store)
	root.OnStateChange = root.NotifyNestedSubs
	root.TrySubscribe()

	var log []string
	root.AddNestedSub(func() { log = append(log, "a") })
	var removeB func()
	removeB = root.AddNestedSub(func() {
		log = append(log, "b")
		removeB()
	})
	root.AddNestedSub(func() { log = append(log, "c") })

	store.change(1)
	if len(log) != 3 {
		t.Fatalf("first pass: expected [a b c], got %v", log)
	}

	log = nil
	store.change(2)
	if len(log) != 2 || log[0] != "a" || log[1] != "c" {
		t.Errorf("second pass: expected [a c], got %v", log)
	}
}

func TestDetachedSubscriptionCanReattach(t *testing.T) {
	store := &fakeStore{}
	root := New(store)
	root.OnStateChange = root.NotifyNestedSubs
	root.TrySubscribe()

	child := NewNested(root)
	child.OnStateChange = child.NotifyNestedSubs

	calls := 0
	remove := child.AddNestedSub(func() { calls++ })
	store.change(1)
	remove()
	store.change(2)

	// A fresh reason re-links child under root.
	child.AddNestedSub(func() { calls++ })
	store.change(3)

	if calls != 2 {
		t.Errorf("expected 2 deliveries (before detach, after reattach), got %d", calls)
	}
}

func TestNestedSubscriptionInheritsBatch(t *testing.T) {
	store := &fakeStore{}

	var batched int
	batch := func(fn func()) {
		batched++
		fn()
	}

	root := New(store, WithBatch(batch))
	root.OnStateChange = root.NotifyNestedSubs
	root.TrySubscribe()

	child := NewNested(root)
	child.OnStateChange = child.NotifyNestedSubs
	child.AddNestedSub(func() {})

	store.change(1)

	// Both the root and the child dispatch loop run inside the wrapper.
	if batched != 2 {
		t.Errorf("expected 2 batched dispatch loops, got %d", batched)
	}
}
