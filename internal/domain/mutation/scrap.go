package mutation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/audit"
	"batchline/internal/domain/ledger"
	"batchline/pkg/logger"
)

// ScrapInput describes writing off a batch.
type ScrapInput struct {
	BatchID id.ID
	Reason  string
}

// Scrap writes off whatever the batch still holds and marks it scrapped.
// Scrapping a depleted batch is allowed and records no movement; it
// closes the door on reviving the batch with an increase adjustment.
// Scrapped is terminal.
func (s *Service) Scrap(ctx context.Context, input ScrapInput) (*ledger.Batch, error) {
	ctx, span := tracer.Start(ctx, "mutation.Scrap")
	defer span.End()
	span.SetAttributes(attribute.String("batch.id", input.BatchID.String()))

	if err := requireReason(input.Reason); err != nil {
		return nil, err
	}

	number, err := s.nextNumber(ctx, ledger.OpScrap)
	if err != nil {
		return nil, err
	}

	var batch *ledger.Batch
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByIDForUpdate(ctx, input.BatchID)
		if err != nil {
			return err
		}
		if b.Status == ledger.StatusScrapped {
			return apperror.NewUnsupportedOperation("batch is already scrapped").
				WithDetail("batchId", b.ID.String())
		}

		writeOff := b.RemainingQuantity
		b.RemainingQuantity = types.ZeroQuantity()
		b.Status = ledger.StatusScrapped
		b.UpdatedAt = time.Now()
		if err := b.CheckQuantityInvariants(); err != nil {
			return err
		}
		if err := s.repo.UpdateBatch(ctx, b); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}

		op := s.newOperation(ctx, ledger.OpScrap, number)
		op.BranchID = &b.BranchID
		op.Reason = input.Reason
		if err := s.repo.CreateOperation(ctx, op); err != nil {
			return fmt.Errorf("create operation: %w", err)
		}
		if writeOff.IsPositive() {
			entry := ledger.NewEntry(op.ID, b.ID, ledger.DirectionExpense, writeOff, b.RemainingQuantity)
			if err := s.repo.CreateEntries(ctx, []ledger.Entry{entry}); err != nil {
				return fmt.Errorf("create entry: %w", err)
			}
		}

		batch = b
		return s.audit.Record(ctx, "batch", b.ID, audit.ActionScrap, map[string]any{
			"number":    op.Number,
			"write_off": writeOff.String(),
			"reason":    input.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch scrapped",
		"number", number,
		"batchId", batch.ID,
	)
	return batch, nil
}
