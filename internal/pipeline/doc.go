// Package pipeline orchestrates one batch run: reconcile generation jobs
// left over from previous runs, submit newly saved articles, publish the
// feed when the catalog changed, and advance the fetch watermark only when
// no work remains outstanding.
//
// The run ledger is persisted before every blocking wait on the generation
// service, so a crash mid-generation is recovered by the next run's
// reconciliation pass instead of losing the job.
package pipeline
