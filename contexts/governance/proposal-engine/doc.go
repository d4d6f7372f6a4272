// Package proposalengine implements the governance core of an
// organization: the proposal lifecycle Draft -> Open -> Closed -> Finalized,
// one weighted vote per member per proposal, and deterministic result
// snapshots that freeze on finalization.
//
// Voting power comes from the external share ledger and is captured at cast
// time. State changes are compare-and-swap writes on the proposal version and
// carry their domain events into a transactional outbox, which the worker
// relays to the configured event bus.
package proposalengine
