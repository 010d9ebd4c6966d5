package mutation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"batchline/internal/core/apperror"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/allocation"
	"batchline/internal/domain/audit"
	"batchline/internal/domain/ledger"
	"batchline/pkg/logger"
)

// CommitAllocation applies a previously proposed allocation. The proposal
// is advisory: every line is re-validated here against freshly locked
// rows, and one failed line rolls back the whole commit.
func (s *Service) CommitAllocation(ctx context.Context, p *allocation.Proposal) ([]ledger.DeductionReceipt, error) {
	ctx, span := tracer.Start(ctx, "mutation.CommitAllocation")
	defer span.End()

	if err := validateProposal(p); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("recipe.code", p.RecipeCode),
		attribute.Int("lines", len(p.Lines)),
	)

	number, err := s.nextNumber(ctx, ledger.OpAllocation)
	if err != nil {
		return nil, err
	}

	receipts := make([]ledger.DeductionReceipt, 0, len(p.Lines))
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batches, err := s.lockProposalBatches(ctx, p)
		if err != nil {
			return err
		}

		// Validate every line before touching any row.
		for _, line := range p.Lines {
			b := batches[line.BatchID]
			if !b.CanMutate() {
				return apperror.NewInsufficientStock(p.RawProductID.String(), line.QuantityDeducted, types.ZeroQuantity()).
					WithDetail("batchId", line.BatchID.String()).
					WithDetail("status", string(b.Status))
			}
			if !types.QtyCovers(b.RemainingQuantity, line.QuantityDeducted) {
				return apperror.NewInsufficientStock(p.RawProductID.String(), line.QuantityDeducted, b.RemainingQuantity).
					WithDetail("batchId", line.BatchID.String())
			}
		}

		op := s.newOperation(ctx, ledger.OpAllocation, number)
		op.BranchID = p.BranchID
		op.Reason = fmt.Sprintf("allocation for recipe %s", p.RecipeCode)
		op.Meta = map[string]any{
			"recipe_id":       p.RecipeID.String(),
			"recipe_code":     p.RecipeCode,
			"output_quantity": p.OutputQuantity.String(),
			"required":        p.RequiredQuantity.String(),
			"policy":          string(p.Policy),
		}
		if err := s.repo.CreateOperation(ctx, op); err != nil {
			return fmt.Errorf("create operation: %w", err)
		}

		now := time.Now()
		entries := make([]ledger.Entry, 0, len(p.Lines))
		for _, line := range p.Lines {
			b := batches[line.BatchID]
			// The line may overshoot the row by at most the comparison
			// tolerance; deduct what the row actually holds.
			take := types.QtyMin(line.QuantityDeducted, b.RemainingQuantity)
			b.ApplyDeduction(take)
			b.UpdatedAt = now
			if err := b.CheckQuantityInvariants(); err != nil {
				return err
			}
			if err := s.repo.UpdateBatch(ctx, b); err != nil {
				return fmt.Errorf("update batch %s: %w", b.ID, err)
			}
			entries = append(entries, ledger.NewEntry(op.ID, b.ID, ledger.DirectionExpense, take, b.RemainingQuantity))
			receipts = append(receipts, ledger.DeductionReceipt{
				OperationID:      op.ID,
				OperationNumber:  op.Number,
				BatchID:          b.ID,
				QuantityDeducted: take,
				RemainingAfter:   b.RemainingQuantity,
			})
		}
		if err := s.repo.CreateEntries(ctx, entries); err != nil {
			return fmt.Errorf("create entries: %w", err)
		}

		return s.audit.Record(ctx, "operation", op.ID, audit.ActionCommit, map[string]any{
			"number":   op.Number,
			"recipe":   p.RecipeCode,
			"lines":    len(p.Lines),
			"required": p.RequiredQuantity.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "allocation committed",
		"number", number,
		"recipe", p.RecipeCode,
		"lines", len(receipts),
	)
	span.AddEvent("committed", trace.WithAttributes(attribute.String("number", number)))
	return receipts, nil
}

// lockProposalBatches locks every batch named by the proposal in one
// statement and returns them keyed by id. LockMany orders by id, so
// concurrent commits over overlapping proposals cannot deadlock.
func (s *Service) lockProposalBatches(ctx context.Context, p *allocation.Proposal) (map[id.ID]*ledger.Batch, error) {
	ids := make([]id.ID, 0, len(p.Lines))
	for _, line := range p.Lines {
		ids = append(ids, line.BatchID)
	}

	locked, err := s.repo.LockMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[id.ID]*ledger.Batch, len(locked))
	for _, b := range locked {
		byID[b.ID] = b
	}
	for _, line := range p.Lines {
		if _, ok := byID[line.BatchID]; !ok {
			return nil, apperror.NewNotFound("batch", line.BatchID.String())
		}
	}
	return byID, nil
}

func validateProposal(p *allocation.Proposal) error {
	if p == nil {
		return apperror.NewValidation("proposal is required")
	}
	if len(p.Lines) == 0 {
		return apperror.NewValidation("proposal has no lines")
	}
	seen := make(map[id.ID]struct{}, len(p.Lines))
	for i, line := range p.Lines {
		if id.IsNil(line.BatchID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: batch id is required", i))
		}
		if !line.QuantityDeducted.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i))
		}
		if _, dup := seen[line.BatchID]; dup {
			return apperror.NewValidation(fmt.Sprintf("line %d: duplicate batch %s", i, line.BatchID))
		}
		seen[line.BatchID] = struct{}{}
	}
	return nil
}
