package mutation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/audit"
	"batchline/internal/domain/ledger"
	"batchline/pkg/logger"
)

// SplitOutput describes one grouped batch carved out of a bulk source.
type SplitOutput struct {
	InstanceCode       string
	Quantity           types.Quantity
	BatchTypeID        *id.ID
	AttributeOverrides entity.Attributes
}

// SplitInput describes cutting a bulk batch into individually tracked units.
type SplitInput struct {
	BatchID id.ID
	Outputs []SplitOutput
}

// Split carves grouped batches out of an ungrouped source. The source
// loses exactly the sum of the output quantities, so the output sum is
// compared against remaining without tolerance: splits are typed in by
// an operator, there is no conversion noise to absorb.
func (s *Service) Split(ctx context.Context, input SplitInput) ([]*ledger.Batch, error) {
	ctx, span := tracer.Start(ctx, "mutation.Split")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", input.BatchID.String()),
		attribute.Int("outputs", len(input.Outputs)),
	)

	if err := validateSplitOutputs(input.Outputs); err != nil {
		return nil, err
	}

	number, err := s.nextNumber(ctx, ledger.OpSplit)
	if err != nil {
		return nil, err
	}

	var created []*ledger.Batch
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByIDForUpdate(ctx, input.BatchID)
		if err != nil {
			return err
		}
		if !b.CanMutate() {
			return apperror.NewUnsupportedOperation("only in-stock batches can be split").
				WithDetail("batchId", b.ID.String()).
				WithDetail("status", string(b.Status))
		}
		if b.Grouped {
			return apperror.NewUnsupportedOperation("grouped batches cannot be split further").
				WithDetail("batchId", b.ID.String())
		}
		bt, err := s.batchTypes.GetByID(ctx, b.BatchTypeID)
		if err != nil {
			return err
		}
		if !bt.CanSplit {
			return apperror.NewUnsupportedOperation(fmt.Sprintf("batch type %s does not allow splitting", bt.Code)).
				WithDetail("batchTypeId", bt.ID.String())
		}

		total := types.ZeroQuantity()
		for _, out := range input.Outputs {
			total = total.Add(out.Quantity)
		}
		if total.GreaterThan(b.RemainingQuantity) {
			return apperror.NewQuantityExceedsAvailable(b.ID.String(), total, b.RemainingQuantity)
		}

		schema, err := s.schemas.SchemaFor(ctx, b.CategoryID)
		if err != nil {
			return err
		}

		batches := make([]*ledger.Batch, 0, len(input.Outputs))
		for i, out := range input.Outputs {
			code := strings.TrimSpace(out.InstanceCode)
			exists, err := s.repo.InstanceCodeExists(ctx, code, nil)
			if err != nil {
				return err
			}
			if exists {
				return apperror.NewGroupedIdentifierRequired("instance code already in use").
					WithDetail("instanceCode", code)
			}

			typeID := b.BatchTypeID
			if out.BatchTypeID != nil {
				if _, err := s.batchTypes.GetByID(ctx, *out.BatchTypeID); err != nil {
					return fmt.Errorf("output %d: %w", i, err)
				}
				typeID = *out.BatchTypeID
			}

			nb := ledger.NewBatch(b.ProductID, b.BranchID, typeID, out.Quantity)
			nb.CategoryID = b.CategoryID
			nb.BatchIdentifier = b.BatchIdentifier
			nb.Grouped = true
			nb.InstanceCode = &code
			nb.AttributeData = mergeAttributes(b.AttributeData, out.AttributeOverrides)
			if err := s.validator.Validate(ctx, schema, nb.AttributeData); err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
			if err := nb.Validate(ctx); err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
			batches = append(batches, nb)
		}

		b.ApplyDeduction(total)
		b.UpdatedAt = time.Now()
		if err := b.CheckQuantityInvariants(); err != nil {
			return err
		}

		if err := s.repo.CreateBatches(ctx, batches); err != nil {
			return fmt.Errorf("create batches: %w", err)
		}
		if err := s.repo.UpdateBatch(ctx, b); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}

		op := s.newOperation(ctx, ledger.OpSplit, number)
		op.BranchID = &b.BranchID
		op.Meta = map[string]any{"outputs": len(batches)}
		if err := s.repo.CreateOperation(ctx, op); err != nil {
			return fmt.Errorf("create operation: %w", err)
		}
		entries := make([]ledger.Entry, 0, len(batches)+1)
		entries = append(entries, ledger.NewEntry(op.ID, b.ID, ledger.DirectionExpense, total, b.RemainingQuantity))
		for _, nb := range batches {
			entries = append(entries, ledger.NewEntry(op.ID, nb.ID, ledger.DirectionReceipt, nb.InitialQuantity, nb.RemainingQuantity))
		}
		if err := s.repo.CreateEntries(ctx, entries); err != nil {
			return fmt.Errorf("create entries: %w", err)
		}

		created = batches
		return s.audit.Record(ctx, "batch", b.ID, audit.ActionSplit, map[string]any{
			"number":  op.Number,
			"outputs": len(batches),
			"total":   total.String(),
			"after":   b.RemainingQuantity.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch split",
		"number", number,
		"batchId", input.BatchID,
		"outputs", len(created),
	)
	return created, nil
}

func validateSplitOutputs(outputs []SplitOutput) error {
	if len(outputs) == 0 {
		return apperror.NewValidation("at least one output is required").
			WithDetail("field", "outputs")
	}
	codes := make(map[string]int, len(outputs))
	for i, out := range outputs {
		code := strings.TrimSpace(out.InstanceCode)
		if code == "" {
			return apperror.NewGroupedIdentifierRequired(
				fmt.Sprintf("output %d: split outputs are individually tracked and need an instance code", i))
		}
		if !out.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("output %d: quantity must be positive", i))
		}
		if first, dup := codes[code]; dup {
			return apperror.NewGroupedIdentifierRequired(
				fmt.Sprintf("instance code %s repeats in outputs %d and %d", code, first, i))
		}
		codes[code] = i
	}
	return nil
}

// mergeAttributes overlays overrides on a copy of base. Overrides win.
func mergeAttributes(base, overrides entity.Attributes) entity.Attributes {
	merged := base.Clone()
	if merged == nil {
		merged = entity.Attributes{}
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
