package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTrialBalanceScan walks unlocked periods and snapshots their
	// trial-balance totals.
	TaskTrialBalanceScan = "openbal:trial_balance_scan"
)

// TrialBalanceScanPayload narrows the scan to one tenant when set.
type TrialBalanceScanPayload struct {
	TenantID string `json:"tenantId,omitempty"`
}

// NewTrialBalanceScanTask constructs an Asynq task for the scan.
func NewTrialBalanceScanTask(payload TrialBalanceScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTrialBalanceScan, data), nil
}
