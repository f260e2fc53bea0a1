// Package platform abstracts the host camera service behind narrow
// interfaces: enumerate cameras, open a device, build capture requests,
// surfaces, output targets and session containers, and run capture
// sessions. Every handle is owned by exactly one caller and released
// exactly once.
//
// State notifications (device disconnect/error, session ready/active) are
// delivered on a backend-owned goroutine, concurrently with calls into the
// backend. Callbacks must not block and must not mutate resource slots;
// higher layers turn them into events.
//
// Sim is the in-process backend used both in production builds without
// hardware bindings and as the instrumented fake in tests: it journals
// successful calls, counts live handles, and supports per-operation
// failure injection.
package platform
