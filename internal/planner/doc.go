// Package planner keeps a trip's itinerary in memory and synchronizes it with
// the store.
//
// Every mutation goes through Session.Dispatch. The command is applied to the
// local plan immediately so callers see the new state synchronously, then the
// corresponding remote write is queued. Each trip has a single FIFO write
// queue with at most one write in flight, so remote writes land in the order
// the commands were dispatched.
//
// A session tracks two plans:
//
//	confirmed  the state the store is known to hold
//	local      confirmed plus every queued command
//
// When a write is rejected (after bounded retries of transient errors), the
// failing command is dropped, local is rebuilt from confirmed, and the rest
// of the queue is replayed on top. Queued commands that no longer apply after
// the rollback fail as well. Every failure produces a Notice.
package planner
