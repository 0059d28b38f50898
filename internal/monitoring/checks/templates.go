package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/mlnotify/internal/monitoring"
)

// ActiveTemplateCounter reports how many templates the dynamic generator can draw from.
type ActiveTemplateCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// Templates reports the active template count. An empty catalogue leaves the
// generator producing nothing but does not make the service unready.
func Templates(counter ActiveTemplateCounter) monitoring.Check {
	return monitoring.NewCheck("templates", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if counter == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "template store not configured",
				Duration: time.Since(start),
			}
		}

		count, err := counter.CountActive(ctx)
		if err != nil {
			return monitoring.ResultFromError("templates", err, time.Since(start))
		}

		details := fmt.Sprintf("%d active templates", count)
		if count == 0 {
			details = "no active templates; dynamic generation produces nothing"
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  details,
			Duration: time.Since(start),
		}
	})
}
