// Package primitives provides the value types and small building blocks the
// state service runtime is assembled from.
//
// Core invariants:
//   - State and Event values are frozen (copied, payload cloned when possible)
//     before the runtime keeps them
//   - A DisposableStore releases its resources in registration order
//   - EventQueues never dispatch; they only hold items in FIFO order
//   - An Emitter delivers synchronously, in subscription order
//
// Nothing in this package locks on behalf of the caller except DisposableStore
// and Emitter, which are safe to reach from timer goroutines.
package primitives
