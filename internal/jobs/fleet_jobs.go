package jobs

import (
	"context"

	"github.com/MrAk1876/carRent-sub002/internal/logger"
)

// ResolveDueMaintenance returns every vehicle whose scheduled service window
// has passed back to the available pool.
func (jr *JobRunner) ResolveDueMaintenance() {
	jr.runWithRecovery("ResolveDueMaintenance", func() {
		ctx := context.Background()
		ids, err := jr.vehicleRepo.ResolveDueMaintenance(ctx, jr.now().UTC())
		if err != nil {
			logger.Error("Failed to resolve due maintenance", "error", err)
			return
		}
		if len(ids) > 0 {
			logger.Info("Vehicles returned from maintenance", "count", len(ids), "vehicle_ids", ids)
		}
	})
}
