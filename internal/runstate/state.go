package runstate

import (
	"time"
)

// PendingJob is one in-flight audio generation request. It carries enough
// denormalized article metadata to finish the episode record without
// re-fetching the article.
type PendingJob struct {
	ArticleID  string    `json:"article_id"`
	NotebookID string    `json:"notebook_id"`
	TaskID     string    `json:"task_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Summary    string    `json:"summary"`
	SourceURL  string    `json:"source_url"`
	StartedAt  time.Time `json:"started_at"`
}

// Age returns how long the job has been in flight.
func (j PendingJob) Age(now time.Time) time.Duration {
	return now.Sub(j.StartedAt)
}

// State is the singleton run ledger.
//
// LastRun is the exclusive lower bound for "new" articles on the next fetch;
// nil means the pipeline has never completed a pass. Processed membership is
// authoritative for idempotence: an article id present here is never
// resubmitted, even if its episode was later deleted externally. Pending
// holds jobs started in a previous run that have not resolved yet, in
// submission order.
type State struct {
	LastRun   *time.Time
	Processed map[string]time.Time
	Pending   []PendingJob
}

// NewState returns an empty ledger.
func NewState() *State {
	return &State{Processed: make(map[string]time.Time)}
}

// IsProcessed reports whether the article id has already produced an episode
// (or was otherwise consumed by a completed job).
func (s *State) IsProcessed(articleID string) bool {
	_, ok := s.Processed[articleID]
	return ok
}

// MarkProcessed records the article id with the given completion time.
// Idempotent: marking an already-present id keeps its original timestamp.
func (s *State) MarkProcessed(articleID string, completedAt time.Time) {
	if s.Processed == nil {
		s.Processed = make(map[string]time.Time)
	}
	if _, ok := s.Processed[articleID]; ok {
		return
	}
	s.Processed[articleID] = completedAt
}

// AddPending appends a job to the in-flight set.
func (s *State) AddPending(job PendingJob) {
	s.Pending = append(s.Pending, job)
}

// RemovePending drops the job with the given notebook id, if present.
func (s *State) RemovePending(notebookID string) {
	kept := s.Pending[:0]
	for _, job := range s.Pending {
		if job.NotebookID != notebookID {
			kept = append(kept, job)
		}
	}
	s.Pending = kept
}

// PurgeProcessed removes processed entries older than cutoff and returns the
// number removed. Callers must choose a cutoff safely older than the fetch
// lookback so purged articles cannot reappear as "new".
func (s *State) PurgeProcessed(cutoff time.Time) int {
	removed := 0
	for id, completedAt := range s.Processed {
		if completedAt.Before(cutoff) {
			delete(s.Processed, id)
			removed++
		}
	}
	return removed
}
