package observe

import (
	"testing"

	"github.com/cascade-dev/cascade/pkg/store"
)

type setAction struct {
	value int
}

func newIntStore(initial int) *store.Store[int, setAction] {
	return store.New(func(_ int, a setAction) int {
		return a.value
	}, initial)
}

func TestRootRelaysChanges(t *testing.T) {
	s := newIntStore(0)
	root := NewRoot(s)
	root.Mount()

	calls := 0
	root.Subscription().AddNestedSub(func() { calls++ })

	s.Dispatch(setAction{value: 1})
	if calls != 1 {
		t.Errorf("expected 1 relay, got %d", calls)
	}
}

func TestRootCoversMissedWindow(t *testing.T) {
	s := newIntStore(0)
	root := NewRoot(s)

	calls := 0
	root.Subscription().AddNestedSub(func() { calls++ })

	// Change lands between construction and Mount.
	s.Dispatch(setAction{value: 7})

	root.Mount()
	if calls != 1 {
		t.Errorf("expected one catch-up notification on Mount, got %d", calls)
	}
}

func TestRootNetChangeOnly(t *testing.T) {
	s := newIntStore(3)
	root := NewRoot(s)

	calls := 0
	root.Subscription().AddNestedSub(func() { calls++ })

	// Two changes in the window that cancel out: no net difference, so
	// no catch-up fires.
	s.Dispatch(setAction{value: 9})
	s.Dispatch(setAction{value: 3})

	root.Mount()
	if calls != 0 {
		t.Errorf("expected no notification for a net-unchanged window, got %d", calls)
	}
}

func TestRootUnmountStopsRelay(t *testing.T) {
	s := newIntStore(0)
	root := NewRoot(s)
	root.Mount()

	calls := 0
	remove := root.Subscription().AddNestedSub(func() { calls++ })

	root.Unmount()
	if s.ListenerCount() != 1 {
		// The nested sub still holds a connection reason.
		t.Fatalf("expected root still connected while a nested sub exists, got %d store listeners", s.ListenerCount())
	}

	s.Dispatch(setAction{value: 1})
	if calls != 0 {
		t.Errorf("expected no relay after Unmount cleared the handler, got %d", calls)
	}

	remove()
	if s.ListenerCount() != 0 {
		t.Errorf("expected full detach after last reason released, got %d store listeners", s.ListenerCount())
	}
}

func TestObserverFiresOnSelectedChangeOnly(t *testing.T) {
	type state struct {
		Watched int
		Other   int
	}
	s := store.New(func(st state, a func(state) state) state {
		return a(st)
	}, state{})

	root := NewRoot(s)
	root.Mount()

	var fired []int
	obs := NewObserver(s, root.Subscription(),
		func(raw any) int { return raw.(state).Watched },
		func(v int) { fired = append(fired, v) },
	)
	obs.Mount()

	s.Dispatch(func(st state) state { st.Other++; return st })
	if len(fired) != 0 {
		t.Errorf("unrelated change fired the observer: %v", fired)
	}

	s.Dispatch(func(st state) state { st.Watched = 5; return st })
	if len(fired) != 1 || fired[0] != 5 {
		t.Errorf("expected [5], got %v", fired)
	}
	if obs.Selected() != 5 {
		t.Errorf("expected Selected 5, got %d", obs.Selected())
	}
}

func TestObserverCoversMissedWindow(t *testing.T) {
	s := newIntStore(0)
	root := NewRoot(s)
	root.Mount()

	var fired []int
	obs := NewObserver(s, root.Subscription(),
		func(raw any) int { return raw.(int) },
		func(v int) { fired = append(fired, v) },
	)

	// Change lands between construction and Mount.
	s.Dispatch(setAction{value: 4})

	obs.Mount()
	if len(fired) != 1 || fired[0] != 4 {
		t.Errorf("expected catch-up [4], got %v", fired)
	}
}

func TestNestedObserversNotifyTopDown(t *testing.T) {
	s := newIntStore(0)
	root := NewRoot(s)
	root.Mount()

	var log []string
	parent := NewObserver(s, root.Subscription(),
		func(raw any) int { return raw.(int) },
		func(int) { log = append(log, "parent") },
	)
	parent.Mount()

	child := NewObserver(s, parent.Subscription(),
		func(raw any) int { return raw.(int) },
		func(int) { log = append(log, "child") },
	)
	child.Mount()

	s.Dispatch(setAction{value: 1})

	if len(log) != 2 || log[0] != "parent" || log[1] != "child" {
		t.Errorf("expected [parent child], got %v", log)
	}
}

func TestObserverUnmountDetaches(t *testing.T) {
	s := newIntStore(0)
	root := NewRoot(s)
	root.Mount()

	fired := 0
	obs := NewObserver(s, root.Subscription(),
		func(raw any) int { return raw.(int) },
		func(int) { fired++ },
	)
	obs.Mount()
	obs.Unmount()

	s.Dispatch(setAction{value: 1})
	if fired != 0 {
		t.Errorf("expected no firing after Unmount, got %d", fired)
	}
}

func TestObserverCustomEquals(t *testing.T) {
	s := newIntStore(0)
	root := NewRoot(s)
	root.Mount()

	fired := 0
	// Treat values in the same decade as equal.
	obs := NewObserver(s, root.Subscription(),
		func(raw any) int { return raw.(int) },
		func(int) { fired++ },
		WithEquals[int](func(a, b int) bool { return a/10 == b/10 }),
	)
	obs.Mount()

	s.Dispatch(setAction{value: 9})
	if fired != 0 {
		t.Errorf("expected same-decade change suppressed, got %d", fired)
	}

	s.Dispatch(setAction{value: 11})
	if fired != 1 {
		t.Errorf("expected cross-decade change to fire, got %d", fired)
	}
}

func TestRemountAfterUnmount(t *testing.T) {
	s := newIntStore(0)
	root := NewRoot(s)
	root.Mount()
	root.Unmount()

	calls := 0
	root.Subscription().AddNestedSub(func() { calls++ })

	// Change made while detached is picked up as one net notification.
	s.Dispatch(setAction{value: 2})
	root.Mount()

	if calls != 1 {
		t.Errorf("expected one catch-up after remount, got %d", calls)
	}

	s.Dispatch(setAction{value: 3})
	if calls != 2 {
		t.Errorf("expected live relay after remount, got %d", calls)
	}
}
