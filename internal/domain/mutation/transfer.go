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

// TransferInput describes moving stock between branches.
type TransferInput struct {
	BatchID             id.ID
	DestinationBranchID id.ID
	Quantity            types.Quantity
}

// TransferResult reports the outcome of a transfer. Created is nil when
// the whole batch moved in place.
type TransferResult struct {
	Source  *ledger.Batch `json:"source"`
	Created *ledger.Batch `json:"created,omitempty"`
}

// Transfer moves quantity from a batch to another branch. Moving the
// full remaining quantity re-homes the batch; a partial move decrements
// the source and creates a new batch at the destination with the same
// product, category, type and attributes. Grouped batches only move
// whole, their instance code names one physical unit.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	ctx, span := tracer.Start(ctx, "mutation.Transfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", input.BatchID.String()),
		attribute.String("branch.to", input.DestinationBranchID.String()),
	)

	if id.IsNil(input.DestinationBranchID) {
		return nil, apperror.NewValidation("destination branch is required").
			WithDetail("field", "destinationBranchId")
	}
	if !input.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}

	number, err := s.nextNumber(ctx, ledger.OpTransfer)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByIDForUpdate(ctx, input.BatchID)
		if err != nil {
			return err
		}
		if !b.CanMutate() {
			return apperror.NewUnsupportedOperation("only in-stock batches can be transferred").
				WithDetail("batchId", b.ID.String()).
				WithDetail("status", string(b.Status))
		}
		if b.BranchID == input.DestinationBranchID {
			return apperror.NewValidation("destination branch equals the current branch").
				WithDetail("field", "destinationBranchId")
		}

		dest, err := s.branches.GetByID(ctx, input.DestinationBranchID)
		if err != nil {
			return err
		}
		if !dest.CanHoldStock() {
			return apperror.NewValidation(fmt.Sprintf("branch %s cannot hold stock", dest.Code)).
				WithDetail("branchId", dest.ID.String())
		}

		if types.QtyExceeds(input.Quantity, b.RemainingQuantity) {
			return apperror.NewQuantityExceedsAvailable(b.ID.String(), input.Quantity, b.RemainingQuantity)
		}

		from := b.BranchID
		op := s.newOperation(ctx, ledger.OpTransfer, number)
		op.BranchID = &from
		op.Meta = map[string]any{
			"from": from.String(),
			"to":   dest.ID.String(),
		}

		if types.QtyEqual(input.Quantity, b.RemainingQuantity) {
			// Whole-batch move: the row changes branch, quantities and
			// journal totals are untouched.
			b.BranchID = dest.ID
			b.UpdatedAt = time.Now()
			if err := s.repo.UpdateBatch(ctx, b); err != nil {
				return fmt.Errorf("update batch: %w", err)
			}
			op.Meta["whole"] = true
			if err := s.repo.CreateOperation(ctx, op); err != nil {
				return fmt.Errorf("create operation: %w", err)
			}
			result.Source = b
			return s.audit.Record(ctx, "batch", b.ID, audit.ActionTransfer, map[string]any{
				"number": op.Number,
				"from":   from.String(),
				"to":     dest.ID.String(),
				"whole":  true,
			})
		}

		if b.Grouped {
			return apperror.NewUnsupportedOperation("grouped batches move whole, split first").
				WithDetail("batchId", b.ID.String())
		}

		nb := ledger.NewBatch(b.ProductID, dest.ID, b.BatchTypeID, input.Quantity)
		nb.CategoryID = b.CategoryID
		nb.BatchIdentifier = b.BatchIdentifier
		nb.AttributeData = b.AttributeData.Clone()
		schema, err := s.schemas.SchemaFor(ctx, nb.CategoryID)
		if err != nil {
			return err
		}
		if err := s.validator.Validate(ctx, schema, nb.AttributeData); err != nil {
			return err
		}
		if err := nb.Validate(ctx); err != nil {
			return err
		}

		b.ApplyDeduction(input.Quantity)
		b.UpdatedAt = time.Now()
		if err := b.CheckQuantityInvariants(); err != nil {
			return err
		}

		if err := s.repo.CreateBatch(ctx, nb); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		if err := s.repo.UpdateBatch(ctx, b); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}
		if err := s.repo.CreateOperation(ctx, op); err != nil {
			return fmt.Errorf("create operation: %w", err)
		}
		entries := []ledger.Entry{
			ledger.NewEntry(op.ID, b.ID, ledger.DirectionExpense, input.Quantity, b.RemainingQuantity),
			ledger.NewEntry(op.ID, nb.ID, ledger.DirectionReceipt, input.Quantity, nb.RemainingQuantity),
		}
		if err := s.repo.CreateEntries(ctx, entries); err != nil {
			return fmt.Errorf("create entries: %w", err)
		}

		result.Source = b
		result.Created = nb
		return s.audit.Record(ctx, "batch", b.ID, audit.ActionTransfer, map[string]any{
			"number":   op.Number,
			"from":     from.String(),
			"to":       dest.ID.String(),
			"quantity": input.Quantity.String(),
			"created":  nb.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch transferred",
		"number", number,
		"batchId", input.BatchID,
		"to", input.DestinationBranchID,
		"whole", result.Created == nil,
	)
	return result, nil
}
