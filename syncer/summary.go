package syncer

import (
	"errors"
	"time"
)

// Status is the outcome of processing one local file.
type Status int

const (
	// StatusUpserted means the file was embedded and written.
	StatusUpserted Status = iota
	// StatusSkipped means the file was blank and left untouched.
	StatusSkipped
	// StatusFailed means one stage failed; any existing record is stale.
	StatusFailed
	// StatusPlanned means a dry run would have upserted the file.
	StatusPlanned
)

func (s Status) String() string {
	switch s {
	case StatusUpserted:
		return "upserted"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusPlanned:
		return "planned"
	default:
		return "unknown"
	}
}

// FileResult records what happened to one local file.
type FileResult struct {
	Path   string
	Status Status
	// Err is a *core.FileProcessingError when Status is StatusFailed.
	Err error
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID  string
	DryRun bool

	LocalFiles  int
	RemotePaths int

	// Deleted holds the stale paths removed, or that would be removed in a dry run.
	Deleted []string
	// DeleteErr is a *core.RemoteDeleteError when some deletions failed.
	DeleteErr error

	// Results has one entry per file that was attempted, in resolver order.
	Results []FileResult

	Upserted int
	Skipped  int
	Failed   int
	Planned  int

	Duration time.Duration
}

func (s *Summary) tally() {
	s.Upserted, s.Skipped, s.Failed, s.Planned = 0, 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case StatusUpserted:
			s.Upserted++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusPlanned:
			s.Planned++
		}
	}
}

// Failures returns the results with StatusFailed.
func (s *Summary) Failures() []FileResult {
	var out []FileResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Err joins the delete error and every per-file error. It is nil when the
// run completed cleanly.
func (s *Summary) Err() error {
	errs := []error{s.DeleteErr}
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
