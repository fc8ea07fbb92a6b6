package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression with a seconds field,
	// e.g. "0 30 2 * * *" (02:30 daily) or "@daily"
	Schedule() string
}

// JobResult is one execution of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory bounds the results kept per job
const maxHistory = 100

// JobHistory keeps the latest maxHistory results of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// GetLatestResults returns the latest n results
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// ConsecutiveFailures counts failed runs since the last success.
// A nightly forecast failing twice in a row means stale reports.
func (h *JobHistory) ConsecutiveFailures() int {
	n := 0
	for i := len(h.Results) - 1; i >= 0 && !h.Results[i].Success; i-- {
		n++
	}
	return n
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(h.successes()) / float64(len(h.Results))
}

func (h *JobHistory) successes() int {
	n := 0
	for _, r := range h.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// JobStats summarizes the kept history of one job
type JobStats struct {
	JobName             string     `json:"job_name"`
	Schedule            string     `json:"schedule"`
	TotalRuns           int        `json:"total_runs"`
	SuccessCount        int        `json:"success_count"`
	FailureCount        int        `json:"failure_count"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	SuccessRate         float64    `json:"success_rate"`
	LastRun             *time.Time `json:"last_run,omitempty"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
}

// Stats builds JobStats from the history
func (h *JobHistory) Stats(jobName, schedule string) JobStats {
	ok := h.successes()
	st := JobStats{
		JobName:             jobName,
		Schedule:            schedule,
		TotalRuns:           len(h.Results),
		SuccessCount:        ok,
		FailureCount:        len(h.Results) - ok,
		ConsecutiveFailures: h.ConsecutiveFailures(),
		SuccessRate:         h.GetSuccessRate(),
	}

	for i := len(h.Results) - 1; i >= 0; i-- {
		r := h.Results[i]
		if st.LastRun == nil {
			st.LastRun = &r.StartTime
		}
		if r.Success && st.LastSuccess == nil {
			st.LastSuccess = &r.StartTime
		}
		if !r.Success && st.LastFailure == nil {
			st.LastFailure = &r.StartTime
		}
	}
	return st
}
