// Package catalog persists the list of fully published episodes. The
// catalog is independent from the run ledger but saved in lockstep with it:
// an episode is appended and persisted before its pending job is removed.
package catalog
