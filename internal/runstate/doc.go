// Package runstate persists the pipeline's run ledger: the watermark of the
// last completed pass, the set of processed articles, and generation jobs
// still in flight. The ledger is a single JSON document replaced atomically
// on every save so a crash can never leave a partial write behind.
package runstate
