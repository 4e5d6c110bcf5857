package cli

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/meridian-suite/openbal/jobs"
)

func newTestCLI(t *testing.T) *JobsCLI {
	t.Helper()
	mr := miniredis.RunT(t)
	cli, err := NewJobsCLI(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func TestTriggerEnqueuesTrialBalanceScan(t *testing.T) {
	cli := newTestCLI(t)

	info, err := cli.Trigger(context.Background(), jobs.TaskTrialBalanceScan, "")
	require.NoError(t, err)
	require.Equal(t, jobs.TaskTrialBalanceScan, info.Type)
	require.Equal(t, jobs.QueueDefault, info.Queue)
}

func TestTriggerRejectsUnsupportedJob(t *testing.T) {
	cli := newTestCLI(t)

	_, err := cli.Trigger(context.Background(), "openbal:reindex", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported job")
}

func TestUnconfiguredCLIGuards(t *testing.T) {
	var cli *JobsCLI

	_, err := cli.Trigger(context.Background(), jobs.TaskTrialBalanceScan, "")
	require.Error(t, err)
	_, err = cli.InspectQueue(context.Background())
	require.Error(t, err)
	_, err = cli.ListScheduled(context.Background(), 5)
	require.Error(t, err)
}
