// Package cascade propagates change notifications from a single state
// container down through a tree of subscriptions, guaranteeing that
// ancestors are notified strictly before their descendants for any given
// change.
//
// # Core Types
//
// Subscription is one tree level's relay point. The root subscription
// listens directly on the store; every other subscription registers
// itself as a single listener on its parent:
//
//	root := cascade.New(store)
//	root.OnStateChange = root.NotifyNestedSubs
//	root.TrySubscribe()
//
//	child := cascade.NewNested(root)
//	child.OnStateChange = child.NotifyNestedSubs
//	child.TrySubscribe()
//
//	remove := child.AddNestedSub(func() {
//		// something above this level changed
//	})
//
// When the store reports a change, the root's listeners fire in
// registration order, and each child subscription relays into its own
// listeners before the next sibling is visited. The result is a
// depth-first, top-down notification wave for every change.
//
// # Lifecycle
//
// Subscriptions connect to their parent lazily: the first reason to be
// connected (a nested listener or a self-subscription) establishes the
// upstream link, and the last reason released tears it down. A
// disconnected subscription may reconnect later.
//
// # Concurrency
//
// The subscription tree follows a single-threaded cooperative model: all
// mutation and notification must happen on the goroutine that drives
// state changes. Re-entrant subscribe/unsubscribe during a notify pass is
// supported; concurrent use from multiple goroutines is not.
package cascade
