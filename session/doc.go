// Package session tracks the in-flight state of one teleoperation run: the
// mode currently engaged, the decision that selected it, and a journal of
// every switch with who initiated it.
//
// Session state is ephemeral by design. Everything worth keeping across runs
// flows through the example and rule stores; a session can be discarded at
// any time without losing learning progress.
package session
