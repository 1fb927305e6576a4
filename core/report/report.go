// Package report computes operational statistics for supervisors:
// how long requests wait, and how much of the fleet is committed.
package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/medrota/dispatch/core/clock"
	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/store"
)

// QueueStats summarizes the pending request queue.
type QueueStats struct {
	Pending   int           `json:"pending"`
	MeanWait  time.Duration `json:"mean_wait"`
	StdDev    time.Duration `json:"stddev_wait"`
	P50Wait   time.Duration `json:"p50_wait"`
	P90Wait   time.Duration `json:"p90_wait"`
	OldestAge time.Duration `json:"oldest_age"`
}

// FleetStats summarizes resource commitment per category.
type FleetStats struct {
	Vehicles    int     `json:"vehicles"`
	InUse       int     `json:"in_use"`
	Sidelined   int     `json:"sidelined"`
	Utilization float64 `json:"utilization"`
}

// Reporter derives statistics from the store.
type Reporter struct {
	store *store.Store
	clock clock.Clock
}

// New creates a reporter.
func New(st *store.Store, clk clock.Clock) *Reporter {
	return &Reporter{store: st, clock: clk}
}

// Queue computes wait statistics over the currently pending requests.
func (r *Reporter) Queue() QueueStats {
	now := r.clock.Now()
	var waits []float64
	r.store.View(func(tx *store.Tx) {
		for _, req := range tx.Requests() {
			if req.Status == model.RequestPending {
				waits = append(waits, now.Sub(req.CreatedAt).Seconds())
			}
		}
	})
	out := QueueStats{Pending: len(waits)}
	if len(waits) == 0 {
		return out
	}
	sort.Float64s(waits)
	mean, std := stat.MeanStdDev(waits, nil)
	out.MeanWait = secs(mean)
	if len(waits) > 1 {
		out.StdDev = secs(std)
	}
	out.P50Wait = secs(stat.Quantile(0.5, stat.Empirical, waits, nil))
	out.P90Wait = secs(stat.Quantile(0.9, stat.Empirical, waits, nil))
	out.OldestAge = secs(waits[len(waits)-1])
	return out
}

// Fleet computes vehicle commitment for one category. An empty
// category covers the whole fleet. Out-of-service units count as
// sidelined, not as deployable capacity.
func (r *Reporter) Fleet(cat model.Category) FleetStats {
	var out FleetStats
	r.store.View(func(tx *store.Tx) {
		for _, v := range tx.Vehicles() {
			if cat != "" && v.Category != cat {
				continue
			}
			out.Vehicles++
			switch v.Status {
			case model.VehicleInUse:
				out.InUse++
			case model.VehicleMaintenance, model.VehicleOutOfService:
				out.Sidelined++
			}
		}
	})
	if deployable := out.Vehicles - out.Sidelined; deployable > 0 {
		out.Utilization = float64(out.InUse) / float64(deployable)
	}
	return out
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
