package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/monitoring"
)

// OverdueSweepJob periodically finds approved loans past their due date
// and publishes an overdue event for each. Overdue is a reporting
// condition, not a lifecycle state: the sweep never mutates loans, and
// an overdue loan is still returned through the normal return flow.
type OverdueSweepJob struct {
	loanRepo  loan.Repository
	publisher event.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewOverdueSweepJob(loanRepo loan.Repository, publisher event.Publisher, logger *slog.Logger) *OverdueSweepJob {
	if loanRepo == nil || publisher == nil || logger == nil {
		panic("OverdueSweepJob dependencies cannot be nil")
	}
	return &OverdueSweepJob{
		loanRepo:  loanRepo,
		publisher: publisher,
		logger:    logger.With("job", "OverdueSweep"),
		now:       time.Now,
	}
}

func (j *OverdueSweepJob) Run(ctx context.Context) error {
	startTime := j.now()
	j.logger.InfoContext(ctx, "Starting overdue loan sweep.")

	overdue, err := j.loanRepo.ListOverdueLoans(ctx, startTime)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list overdue loans, aborting sweep.", slog.Any("error", err))
		return fmt.Errorf("cannot run sweep, failed to list overdue loans: %w", err)
	}

	monitoring.SetOverdueLoans(len(overdue))

	if len(overdue) == 0 {
		j.logger.InfoContext(ctx, "No overdue loans found.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	var wg sync.WaitGroup
	var errorCount int32

	for _, l := range overdue {
		wg.Add(1)
		go func(current *loan.Loan) {
			defer wg.Done()

			logCtx := j.logger.With(slog.String("loanID", current.ID.String()))
			evt := event.LoanEvent{
				Timestamp: startTime,
				Payload: event.LoanEventPayload{
					LoanID:      current.ID,
					MemberID:    current.MemberID,
					BookID:      current.BookID,
					ApproverID:  current.ApproverID,
					Status:      string(current.Status),
					RequestedAt: current.RequestedAt,
					DueDate:     current.DueDate,
					ReturnedAt:  current.ReturnedAt,
				},
			}
			if pubErr := j.publisher.PublishLoanOverdue(ctx, evt); pubErr != nil {
				logCtx.ErrorContext(ctx, "Failed to publish overdue event", slog.Any("error", pubErr))
				atomic.AddInt32(&errorCount, 1)
				return
			}
			logCtx.DebugContext(ctx, "Published overdue event.", slog.Time("dueDate", *current.DueDate))
		}(l)
	}

	wg.Wait()
	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("overdue_loans", len(overdue)),
		slog.Int("errors_encountered", int(errorCount)),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Overdue loan sweep finished with errors.")
		return fmt.Errorf("sweep completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Overdue loan sweep finished successfully.")
	return nil
}
