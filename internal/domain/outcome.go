package domain

import (
	"errors"
	"time"
)

// Outcome is the result of one unit of work: a whole promoter run or one snapshot target
type Outcome struct {
	Job        string
	Target     string
	Success    bool
	Version    int64 // snapshot version, zero for the promoter
	Updated    int   // projects persisted, zero for the snapshotter
	Candidates int
	DryRun     bool
	Err        error
}

// RunResult is returned by every job run; the caller decides how to report and exit
type RunResult struct {
	RunID      string
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

// Failed reports whether any outcome of the run failed
func (r *RunResult) Failed() bool {
	for _, o := range r.Outcomes {
		if !o.Success {
			return true
		}
	}
	return false
}

// Err joins the causes of all failed outcomes
func (r *RunResult) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if !o.Success && o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Succeeded counts successful outcomes
func (r *RunResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}
