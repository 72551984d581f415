// Package quota tracks reserved storage bytes per user and enforces
// per-user limits with a single atomic check-and-commit, so two concurrent
// uploads can never both pass a limit check against a stale total.
package quota
