package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/mlnotify/internal/monitoring"
)

const defaultMaintenanceMaxAge = 26 * time.Hour

// Maintenance verifies that the expiry sweep and cache purge keep succeeding.
// A job failing repeatedly is down; one whose last run is older than maxAge is
// degraded. Jobs that have not run yet are reported but do not fail the probe.
func Maintenance(tracker *monitoring.JobTracker, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		jobs := tracker.Snapshot()

		if len(jobs) == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "no maintenance jobs registered",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var notes []string

		for _, job := range jobs {
			if job.TotalRuns == 0 {
				notes = append(notes, job.Job+": pending first run")
				continue
			}
			if job.ConsecutiveFailures > 1 {
				status = worstStatus(status, monitoring.StatusDown)
				notes = append(notes, job.Job+": consecutive failures: "+job.LastError)
			} else if job.ConsecutiveFailures == 1 {
				status = worstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, job.Job+": last run failed: "+job.LastError)
			}
			if start.Sub(job.LastRunAt) > maxAge {
				status = worstStatus(status, monitoring.StatusDegraded)
				notes = append(notes, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(notes, "; "),
			Duration: time.Since(start),
		}
	})
}

func worstStatus(current, candidate monitoring.ProbeStatus) monitoring.ProbeStatus {
	if current == monitoring.StatusDown || candidate == monitoring.StatusDown {
		return monitoring.StatusDown
	}
	if current == monitoring.StatusDegraded || candidate == monitoring.StatusDegraded {
		return monitoring.StatusDegraded
	}
	return monitoring.StatusUp
}
