// Package authsync reconciles an external identity provider's asynchronous
// auth events with a backend-issued session record, exposing a single
// race-free snapshot of "am I logged in, and with what session data".
//
// Event flow:
//   - A Provider adapter emits auth change events (identity or nil) and
//     exposes credential operations plus on-demand token derivation. Events
//     are asynchronous and possibly reentrant; nothing here assumes
//     synchronous delivery or FIFO resolution.
//   - The Controller reacts to each event: it derives a token, fetches the
//     session record, and mutates the Store. Every in-flight fetch carries a
//     generation stamp so results for an identity that is no longer current
//     are discarded instead of overwriting newer state.
//   - Failure classification is load-bearing: ErrUnauthorized is terminal
//     and routes through a single-shot, cooldown-windowed sign-out guard,
//     while ErrTransient keeps the user authenticated with whatever session
//     data was last held and records the error for a retry affordance.
//
// Consumers read Store snapshots (or subscribe to changes) and invoke the
// Controller's SignIn, SignUp, SignOut and RefreshSession operations. The
// middleware/sessionguard package guards routes on the snapshot, and
// provider/restidp adapts a REST identity-toolkit service to the Provider
// contract.
package authsync
