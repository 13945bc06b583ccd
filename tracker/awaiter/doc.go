// Package awaiter coordinates asynchronous waits against a TrackingStore.
//
// A Waiter settles the first time its condition over the subject's history
// becomes true, or when its timeout elapses - whichever comes first, exactly
// once. Registration checks the condition atomically against the current
// history, so a condition that was already true never waits for a future
// append. Notification is push-based via the store's synchronous listener
// dispatch; there is no polling anywhere.
package awaiter
