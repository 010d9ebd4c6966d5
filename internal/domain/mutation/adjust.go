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

// AdjustDirection tells whether a correction adds or removes stock.
type AdjustDirection string

const (
	AdjustIncrease AdjustDirection = "increase"
	AdjustDecrease AdjustDirection = "decrease"
)

// Valid reports whether the direction is a known value.
func (d AdjustDirection) Valid() bool {
	return d == AdjustIncrease || d == AdjustDecrease
}

// AdjustInput describes a manual stock correction.
type AdjustInput struct {
	BatchID   id.ID
	Direction AdjustDirection
	Quantity  types.Quantity
	Reason    string
}

// Adjust corrects a batch's remaining quantity after a physical recount.
// An increase may lift remaining above initial and revives a depleted
// batch; a decrease below zero is rejected. Scrapped batches stay put.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (*ledger.Batch, error) {
	ctx, span := tracer.Start(ctx, "mutation.Adjust")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", input.BatchID.String()),
		attribute.String("direction", string(input.Direction)),
	)

	if !input.Direction.Valid() {
		return nil, apperror.NewValidation("direction must be increase or decrease").
			WithDetail("field", "direction")
	}
	if !input.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if err := requireReason(input.Reason); err != nil {
		return nil, err
	}

	number, err := s.nextNumber(ctx, ledger.OpAdjustment)
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
			return apperror.NewUnsupportedOperation("scrapped batches cannot be adjusted").
				WithDetail("batchId", b.ID.String())
		}

		before := b.RemainingQuantity
		var direction ledger.Direction
		var moved types.Quantity

		switch input.Direction {
		case AdjustDecrease:
			if types.QtyExceeds(input.Quantity, b.RemainingQuantity) {
				return apperror.NewQuantityExceedsAvailable(b.ID.String(), input.Quantity, b.RemainingQuantity)
			}
			moved = types.QtyMin(input.Quantity, b.RemainingQuantity)
			b.ApplyDeduction(moved)
			direction = ledger.DirectionExpense
		case AdjustIncrease:
			moved = input.Quantity
			b.RemainingQuantity = b.RemainingQuantity.Add(moved)
			if b.RemainingQuantity.GreaterThan(b.InitialQuantity) {
				b.InitialQuantity = b.RemainingQuantity
			}
			if b.Status == ledger.StatusDepleted {
				b.Status = ledger.StatusInStock
			}
			direction = ledger.DirectionReceipt
		}

		b.UpdatedAt = time.Now()
		if err := b.CheckQuantityInvariants(); err != nil {
			return err
		}
		if err := s.repo.UpdateBatch(ctx, b); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}

		op := s.newOperation(ctx, ledger.OpAdjustment, number)
		op.BranchID = &b.BranchID
		op.Reason = input.Reason
		op.Meta = map[string]any{"direction": string(input.Direction)}
		if err := s.repo.CreateOperation(ctx, op); err != nil {
			return fmt.Errorf("create operation: %w", err)
		}
		entry := ledger.NewEntry(op.ID, b.ID, direction, moved, b.RemainingQuantity)
		if err := s.repo.CreateEntries(ctx, []ledger.Entry{entry}); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}

		batch = b
		return s.audit.Record(ctx, "batch", b.ID, audit.ActionAdjust, map[string]any{
			"number":    op.Number,
			"direction": string(input.Direction),
			"quantity":  moved.String(),
			"before":    before.String(),
			"after":     b.RemainingQuantity.String(),
			"reason":    input.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch adjusted",
		"number", number,
		"batchId", batch.ID,
		"direction", input.Direction,
		"remaining", batch.RemainingQuantity,
	)
	return batch, nil
}
