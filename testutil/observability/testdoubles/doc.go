// Package testdoubles provides spy implementations of the tracker
// observability interfaces for testing instrumentation without a real
// logging or metrics backend.
package testdoubles
