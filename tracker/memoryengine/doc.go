// Package memoryengine provides the in-memory TrackingStore engine for
// lifecycle event tracking.
//
// The engine keeps one isolated, append-only record per subject identity and
// guarantees a fixed ordering for every append: mutate the history, bump the
// version that invalidates derived views, then dispatch the subject's
// listeners - all before Append returns. A single mutex per store preserves
// that ordering across goroutines.
//
// State is process-lifetime only. There is no persistence; Reset provides the
// idempotent bulk clear expected between independent test runs, and Dispose
// reclaims a single subject's record since Go offers no weak-identity map
// keyed by arbitrary values.
package memoryengine
