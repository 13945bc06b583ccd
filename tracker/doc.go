// Package tracker provides core abstractions and types for instrumenting
// lifecycle events of observed subjects.
//
// This package defines the fundamental types used across the tracking
// components, including lifecycle events, immutable history snapshots,
// waiter conditions, and common error definitions.
//
// Key types:
//   - Subject: the opaque identity whose lifecycle events are tracked
//   - LifecycleEvent: one recorded occurrence with category and sequence position
//   - History: an immutable snapshot of one subject's full event sequence
//   - Condition: describes when a pending asynchronous wait should resolve
//
// Common usage pattern:
//
//	store, _ := memoryengine.NewTrackingStore()
//	handle, _ := store.Track(component)
//
//	_ = store.Append(ctx, handle, tracker.CategoryInitial, tracker.T("render_ms", 4.2))
//
//	cache, _ := viewcache.New(store)
//	if updated, _ := cache.HasCategory(handle, tracker.CategoryUpdate); updated {
//		// the component re-rendered at least once
//	}
//
//	registry, _ := awaiter.NewRegistry(store)
//	waiter, _ := registry.WaitFor(handle, tracker.MinCount(3), time.Second)
//	err := waiter.Await()
package tracker
