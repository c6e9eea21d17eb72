// Package event fans committed ledger events out to subscribers.
//
// The Bus implements engine.Emitter. Sinks (a structured log, a Redis
// stream) register as Subscribers, either for one event type or for
// AllEvents, and receive events synchronously in commit order. Delivery is best effort: a failing
// subscriber is dropped and counted, and the ledger never depends on it.
package event
