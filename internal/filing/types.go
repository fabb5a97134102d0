// Package filing defines the core domain model for document acquisition:
// the filing record, its status state machine, typed failure classes, the
// ports the engine is built against, and storage key derivation.
package filing

import "time"

// Status tracks a filing through acquisition.
type Status string

const (
	// StatusPending marks a filing awaiting its first acquisition attempt.
	StatusPending Status = "PENDING"
	// StatusProcessing marks a filing claimed by a worker.
	StatusProcessing Status = "PROCESSING"
	// StatusCompleted marks a filing whose document is durably stored.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed marks a transient failure; eligible for retry later.
	StatusFailed Status = "FAILED"
	// StatusRateLimited marks a failure caused by source throttling.
	StatusRateLimited Status = "RATE_LIMITED"
	// StatusURLFailure marks a permanent failure: the document does not
	// exist at its recorded URL.
	StatusURLFailure Status = "URL_FAILURE"
)

// Terminal reports whether the status ends the filing's lifecycle. FAILED
// and RATE_LIMITED are not terminal; those filings stay eligible for later
// invocations.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusURLFailure
}

// Filing is one regulatory document to acquire.
type Filing struct {
	ID            string
	Exchange      string
	SourceID      string
	SourceURL     string
	CompanyID     string
	ReportDate    time.Time
	FileExtension string
	Status        Status
	StorageKey    string
	LocalPath     string
	LastError     string
}

// Resolved reports whether acquiring this filing again would be wasted work.
// A populated storage key counts even under a non-terminal status, which
// covers stale bookkeeping from an interrupted earlier run.
func (f Filing) Resolved() bool {
	return f.Status.Terminal() || f.StorageKey != ""
}

// DownloadResult is the outcome of one acquisition attempt sequence for one
// filing. Failure lives in Err; it is never escalated past this struct.
type DownloadResult struct {
	FilingID   string
	Success    bool
	Skipped    bool
	LocalPath  string
	StorageKey string
	Bytes      int64
	Attempts   int
	Duration   time.Duration
	Err        error
}

// ErrorText renders Err for persistence and logging, empty on success.
func (r DownloadResult) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// BatchOutcome aggregates one coordinator run.
type BatchOutcome struct {
	BatchID   string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
	Results   []DownloadResult
}
