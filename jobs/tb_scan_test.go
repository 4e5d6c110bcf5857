package jobs

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestTrialBalanceScanRejectsMalformedPayload(t *testing.T) {
	job := NewTrialBalanceScanJob(nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskTrialBalanceScan, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestTrialBalanceScanRequiresPool(t *testing.T) {
	job := NewTrialBalanceScanJob(nil, nil, nil)
	task, err := NewTrialBalanceScanTask(TrialBalanceScanPayload{})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}
