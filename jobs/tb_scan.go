package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/meridian-suite/openbal/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// TrialBalanceScanJob snapshots trial-balance totals for every unlocked
// period and logs the ones that do not balance, so drift introduced by
// tolerant batch imports surfaces before anyone attempts a lock.
type TrialBalanceScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewTrialBalanceScanJob initialises the scan handler.
func NewTrialBalanceScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *TrialBalanceScanJob {
	return &TrialBalanceScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type periodTotals struct {
	TenantID    uuid.UUID
	PeriodID    uuid.UUID
	PeriodName  string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Handle executes the trial-balance scan.
func (j *TrialBalanceScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("trial balance scan: handler not configured")
	}
	var payload TrialBalanceScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.metrics().Track(TaskTrialBalanceScan)
	logger := j.logger()
	logger.Info("starting trial balance scan")

	scanned, imbalanced, err := j.scan(ctx, payload, start)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return tracker.End(err)
	}

	logger.Info("completed trial balance scan",
		slog.Int("periods", scanned),
		slog.Int("imbalanced", imbalanced),
		slog.Duration("duration", time.Since(start)),
	)
	return tracker.End(nil)
}

func (j *TrialBalanceScanJob) scan(ctx context.Context, payload TrialBalanceScanPayload, now time.Time) (int, int, error) {
	if j.Pool == nil {
		return 0, 0, errors.New("trial balance scan: pool not configured")
	}

	const query = `
SELECT p.tenant_id, p.id, p.name,
       COALESCE(SUM(b.debit), 0) AS total_debit,
       COALESCE(SUM(b.credit), 0) AS total_credit
FROM opening_periods p
LEFT JOIN opening_balances b ON b.tenant_id = p.tenant_id AND b.period_id = p.id
WHERE NOT p.is_locked AND ($1 = '' OR p.tenant_id::text = $1)
GROUP BY p.tenant_id, p.id, p.name
ORDER BY p.tenant_id, p.id`

	rows, err := j.Pool.Query(ctx, query, payload.TenantID)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	var totals []periodTotals
	for rows.Next() {
		var pt periodTotals
		if err := rows.Scan(&pt.TenantID, &pt.PeriodID, &pt.PeriodName, &pt.TotalDebit, &pt.TotalCredit); err != nil {
			return 0, 0, err
		}
		totals = append(totals, pt)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	imbalanced := 0
	for _, pt := range totals {
		balanced := pt.TotalDebit.Equal(pt.TotalCredit)
		if !balanced {
			imbalanced++
			j.metrics().AddImbalanced(pt.TenantID.String(), 1)
			j.logger().Warn("period out of balance",
				slog.String("tenant_id", pt.TenantID.String()),
				slog.String("period_id", pt.PeriodID.String()),
				slog.String("period_name", pt.PeriodName),
				slog.String("total_debit", pt.TotalDebit.String()),
				slog.String("total_credit", pt.TotalCredit.String()),
			)
		}
		if _, err := j.Pool.Exec(ctx, `
INSERT INTO trial_balance_snapshots (id, tenant_id, period_id, total_debit, total_credit, is_balanced, scanned_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), pt.TenantID, pt.PeriodID, pt.TotalDebit, pt.TotalCredit, balanced, now); err != nil {
			return 0, 0, err
		}
	}

	return len(totals), imbalanced, nil
}

func (j *TrialBalanceScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTrialBalanceScan))
	}
	return slog.Default().With(slog.String("job", TaskTrialBalanceScan))
}

func (j *TrialBalanceScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *TrialBalanceScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
