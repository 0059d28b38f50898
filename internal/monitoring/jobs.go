package monitoring

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlesng35/mlnotify/pkg/metrics"
)

// JobSummary describes the recent history of one background job.
type JobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// JobTracker records background job outcomes for health reporting.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*jobStats
	now  func() time.Time
}

// NewJobTracker constructs an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[string]*jobStats),
		now:  time.Now,
	}
}

// Expect registers a job before its first run so health checks can report it as pending.
func (t *JobTracker) Expect(job string) {
	if t == nil {
		return
	}
	t.entry(job)
}

// Record stores the outcome of one run. A nil err counts as success.
func (t *JobTracker) Record(job string, err error, duration time.Duration) {
	if t == nil {
		return
	}
	result := "success"
	message := ""
	if err != nil {
		result = "failure"
		message = strings.TrimSpace(err.Error())
	}
	metrics.MaintenanceRuns.WithLabelValues(normalizeJob(job), result).Inc()
	t.entry(job).record(t.now(), result, message, duration)
}

// Snapshot returns every known job ordered by name.
func (t *JobTracker) Snapshot() []JobSummary {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]JobSummary, 0, len(t.jobs))
	for name, stats := range t.jobs {
		out = append(out, stats.snapshot(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

func (t *JobTracker) entry(job string) *jobStats {
	job = normalizeJob(job)

	t.mu.RLock()
	stats, ok := t.jobs[job]
	t.mu.RUnlock()
	if ok {
		return stats
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if stats, ok = t.jobs[job]; ok {
		return stats
	}
	stats = &jobStats{}
	t.jobs[job] = stats
	return stats
}

func normalizeJob(job string) string {
	job = strings.ToLower(strings.TrimSpace(job))
	if job == "" {
		return "unknown"
	}
	return job
}

type jobStats struct {
	lastStatus          atomic.Value // string
	lastError           atomic.Value // string
	lastRun             atomic.Int64 // unix nano
	lastDuration        atomic.Int64
	lastSuccessfulRun   atomic.Int64
	consecutiveFailures atomic.Uint64
	totalRuns           atomic.Uint64
}

func (s *jobStats) record(now time.Time, result, message string, duration time.Duration) {
	s.lastStatus.Store(result)
	s.lastError.Store(message)
	s.lastRun.Store(now.UnixNano())
	s.lastDuration.Store(int64(max(duration, 0)))
	s.totalRuns.Add(1)

	if result == "success" {
		s.consecutiveFailures.Store(0)
		s.lastSuccessfulRun.Store(now.UnixNano())
		return
	}
	s.consecutiveFailures.Add(1)
}

func (s *jobStats) snapshot(job string) JobSummary {
	status, _ := s.lastStatus.Load().(string)
	errMsg, _ := s.lastError.Load().(string)

	summary := JobSummary{
		Job:                 job,
		LastStatus:          status,
		LastDuration:        time.Duration(s.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: s.consecutiveFailures.Load(),
		TotalRuns:           s.totalRuns.Load(),
	}
	if ts := s.lastRun.Load(); ts != 0 {
		summary.LastRunAt = time.Unix(0, ts)
	}
	if ts := s.lastSuccessfulRun.Load(); ts != 0 {
		summary.LastSuccessAt = time.Unix(0, ts)
	}
	return summary
}
