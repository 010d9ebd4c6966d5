package ledger

import (
	"context"
	"strings"
	"time"

	"batchline/internal/core/apperror"
	appctx "batchline/internal/core/context"
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/core/tx"
	"batchline/internal/domain"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/audit"
	"batchline/internal/domain/catalogs/batchtype"
	"batchline/internal/domain/catalogs/branch"
	"batchline/internal/domain/catalogs/product"
	"batchline/pkg/logger"
	"batchline/pkg/numerator"
)

// SchemaResolver resolves a batch's category into the validator schema.
// A nil category yields the unconstrained schema. The production
// implementation is the category cache; tests use a map.
type SchemaResolver interface {
	SchemaFor(ctx context.Context, categoryID *id.ID) (attrschema.Schema, error)
}

// Store is the batch ledger store: batch creation, bulk import,
// attribute updates, guarded delete, and every read path. Quantity
// movements (commit/adjust/transfer/split/scrap) live in the mutation
// service; both write through the same Repository.
type Store struct {
	repo       Repository
	txManager  tx.Manager
	validator  *attrschema.Validator
	schemas    SchemaResolver
	products   product.Repository
	branches   branch.Repository
	batchTypes batchtype.Repository
	numerator  numerator.Generator
	audit      audit.Recorder
}

// StoreConfig wires the store's collaborators.
type StoreConfig struct {
	Repo       Repository
	TxManager  tx.Manager
	Validator  *attrschema.Validator
	Schemas    SchemaResolver
	Products   product.Repository
	Branches   branch.Repository
	BatchTypes batchtype.Repository
	Numerator  numerator.Generator
	Audit      audit.Recorder
}

// NewStore creates the ledger store.
func NewStore(cfg StoreConfig) *Store {
	rec := cfg.Audit
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Store{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		validator:  cfg.Validator,
		schemas:    cfg.Schemas,
		products:   cfg.Products,
		branches:   cfg.Branches,
		batchTypes: cfg.BatchTypes,
		numerator:  cfg.Numerator,
		audit:      rec,
	}
}

// CreateBatchInput describes a stock receipt.
type CreateBatchInput struct {
	ProductID id.ID
	BranchID  id.ID

	// CategoryID overrides the product's default category
	CategoryID *id.ID

	// BatchTypeID falls back to the default batch type when nil
	BatchTypeID *id.ID

	Grouped bool

	// InstanceCode is required when Grouped
	InstanceCode string

	// BatchIdentifier optionally tags ungrouped bulk
	BatchIdentifier string

	InitialQuantity types.Quantity
	AttributeData   entity.Attributes
}

// CreateBatch receives one batch into stock. The batch starts in_stock
// with remaining = initial, and the journal records the receipt.
func (s *Store) CreateBatch(ctx context.Context, input CreateBatchInput) (*Batch, error) {
	batch, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(OpReceipt.NumberPrefix()), nil, time.Now())
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("step", "number")
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkInstanceCode(ctx, batch, nil); err != nil {
			return err
		}
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			return err
		}

		op := NewOperation(OpReceipt, number, appctx.OperatorName(ctx))
		op.BranchID = &batch.BranchID
		if err := s.repo.CreateOperation(ctx, op); err != nil {
			return err
		}
		entry := NewEntry(op.ID, batch.ID, DirectionReceipt, batch.InitialQuantity, batch.RemainingQuantity)
		if err := s.repo.CreateEntries(ctx, []Entry{entry}); err != nil {
			return err
		}

		return s.audit.Record(ctx, "batch", batch.ID, audit.ActionCreate, map[string]any{
			"operation":        number,
			"product_id":       batch.ProductID,
			"branch_id":        batch.BranchID,
			"initial_quantity": batch.InitialQuantity,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch created",
		"id", batch.ID,
		"operation", number,
		"product_id", batch.ProductID,
		"quantity", batch.InitialQuantity,
	)
	return batch, nil
}

// ImportBatches receives many batches in one operation. The whole set is
// validated before anything is written; one bad row rejects the import.
func (s *Store) ImportBatches(ctx context.Context, inputs []CreateBatchInput) ([]*Batch, error) {
	if len(inputs) == 0 {
		return nil, apperror.NewValidation("import set is empty")
	}

	batches := make([]*Batch, len(inputs))
	seenCodes := make(map[string]int)
	for i, input := range inputs {
		b, err := s.prepare(ctx, input)
		if err != nil {
			return nil, withRow(err, i)
		}
		if b.Grouped {
			code := *b.InstanceCode
			if firstRow, dup := seenCodes[code]; dup {
				return nil, apperror.NewGroupedIdentifierRequired("instance code duplicated inside the import set").
					WithDetail("instanceCode", code).
					WithDetail("row", i).
					WithDetail("firstRow", firstRow)
			}
			seenCodes[code] = i
		}
		batches[i] = b
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(OpReceipt.NumberPrefix()), nil, time.Now())
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("step", "number")
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i, b := range batches {
			if err := s.checkInstanceCode(ctx, b, nil); err != nil {
				return withRow(err, i)
			}
		}
		if err := s.repo.CreateBatches(ctx, batches); err != nil {
			return err
		}

		op := NewOperation(OpReceipt, number, appctx.OperatorName(ctx))
		op.Meta = entity.Attributes{"import_count": len(batches)}
		if err := s.repo.CreateOperation(ctx, op); err != nil {
			return err
		}

		entries := make([]Entry, len(batches))
		for i, b := range batches {
			entries[i] = NewEntry(op.ID, b.ID, DirectionReceipt, b.InitialQuantity, b.RemainingQuantity)
		}
		if err := s.repo.CreateEntries(ctx, entries); err != nil {
			return err
		}

		return s.audit.Record(ctx, "operation", op.ID, audit.ActionCreate, map[string]any{
			"operation": number,
			"type":      string(OpReceipt),
			"batches":   len(batches),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batches imported", "operation", number, "count", len(batches))
	return batches, nil
}

// UpdateAttributes replaces a batch's attribute_data. The replacement is
// validated against the batch's category schema exactly like creation.
// Scrapped batches are terminal and reject the update.
func (s *Store) UpdateAttributes(ctx context.Context, batchID id.ID, attrs entity.Attributes) (*Batch, error) {
	var updated *Batch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status == StatusScrapped {
			return apperror.NewUnsupportedOperation("scrapped batch is terminal").
				WithDetail("batchId", batchID.String())
		}

		schema, err := s.schemas.SchemaFor(ctx, b.CategoryID)
		if err != nil {
			return err
		}
		if err := s.validator.Validate(ctx, schema, attrs); err != nil {
			return err
		}

		old := b.AttributeData
		b.AttributeData = attrs
		b.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateBatch(ctx, b); err != nil {
			return err
		}
		updated = b

		return s.audit.Record(ctx, "batch", b.ID, audit.ActionUpdate, audit.Diff(old, attrs))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBatch hard deletes a batch. Only untouched receipts qualify:
// full remaining, in_stock, and nothing in the journal beyond the
// creation receipt. Everything else keeps its history; scrap instead.
func (s *Store) DeleteBatch(ctx context.Context, batchID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if !b.Untouched() {
			return apperror.NewUnsupportedOperation("batch has ledger history and cannot be deleted").
				WithDetail("batchId", batchID.String())
		}

		entries, err := s.repo.ListEntriesByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if len(entries) != 1 {
			return apperror.NewUnsupportedOperation("batch has ledger history and cannot be deleted").
				WithDetail("batchId", batchID.String())
		}
		op, err := s.repo.GetOperation(ctx, entries[0].OperationID)
		if err != nil {
			return err
		}
		if op.Type != OpReceipt {
			return apperror.NewUnsupportedOperation("only receipt-created batches can be deleted").
				WithDetail("batchId", batchID.String()).
				WithDetail("createdBy", string(op.Type))
		}

		if err := s.repo.DeleteBatch(ctx, batchID); err != nil {
			return err
		}
		return s.audit.Record(ctx, "batch", batchID, audit.ActionDelete, map[string]any{
			"instance_code": b.InstanceCode,
			"quantity":      b.InitialQuantity,
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "batch deleted", "id", batchID)
	return nil
}

// GetBatch retrieves one batch.
func (s *Store) GetBatch(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.GetByID(ctx, batchID)
}

// ListBatches retrieves batches with filtering.
func (s *Store) ListBatches(ctx context.Context, filter Filter) (domain.ListResult[*Batch], error) {
	return s.repo.List(ctx, filter)
}

// Availability totals remaining in-stock quantity for a product,
// optionally narrowed to one branch.
func (s *Store) Availability(ctx context.Context, productID id.ID, branchID *id.ID) (types.Quantity, error) {
	return s.repo.SumAvailability(ctx, productID, branchID)
}

// BatchHistory returns the batch's full journal.
func (s *Store) BatchHistory(ctx context.Context, batchID id.ID) ([]Entry, error) {
	if _, err := s.repo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.repo.ListEntriesByBatch(ctx, batchID)
}

// ListOperations retrieves journal headers.
func (s *Store) ListOperations(ctx context.Context, filter OperationFilter) (domain.ListResult[*Operation], error) {
	return s.repo.ListOperations(ctx, filter)
}

// GetOperation retrieves one operation with its movements.
func (s *Store) GetOperation(ctx context.Context, opID id.ID) (*Operation, []Entry, error) {
	op, err := s.repo.GetOperation(ctx, opID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.repo.ListEntriesByOperation(ctx, opID)
	if err != nil {
		return nil, nil, err
	}
	return op, entries, nil
}

// prepare resolves references, merges attribute defaults, validates the
// attribute map and assembles the batch. No writes.
func (s *Store) prepare(ctx context.Context, input CreateBatchInput) (*Batch, error) {
	if !input.InitialQuantity.IsPositive() {
		return nil, apperror.NewValidation("initial quantity must be greater than zero").
			WithDetail("field", "initialQuantity").
			WithDetail("value", input.InitialQuantity)
	}

	prod, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !prod.CanBeStocked() {
		return nil, apperror.NewValidation("virtual products are not stocked; receive the raw material instead").
			WithDetail("productId", input.ProductID.String())
	}

	br, err := s.branches.GetByID(ctx, input.BranchID)
	if err != nil {
		return nil, err
	}
	if !br.CanHoldStock() {
		return nil, apperror.NewValidation("branch does not accept stock").
			WithDetail("branchId", input.BranchID.String())
	}

	var bt *batchtype.BatchType
	if input.BatchTypeID != nil && !id.IsNil(*input.BatchTypeID) {
		bt, err = s.batchTypes.GetByID(ctx, *input.BatchTypeID)
		if err != nil {
			return nil, err
		}
	} else {
		bt, err = s.batchTypes.GetDefault(ctx)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewValidation("no default batch type configured, specify one")
			}
			return nil, err
		}
	}

	categoryID := input.CategoryID
	if categoryID == nil {
		categoryID = prod.DefaultCategoryID
	}
	schema, err := s.schemas.SchemaFor(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	attrs := mergeDefaults(prod.AttributeDefaults, input.AttributeData)
	if err := s.validator.Validate(ctx, schema, attrs); err != nil {
		return nil, err
	}

	b := NewBatch(input.ProductID, input.BranchID, bt.ID, input.InitialQuantity)
	b.CategoryID = categoryID
	b.AttributeData = attrs
	b.Grouped = input.Grouped
	if input.Grouped {
		code := strings.TrimSpace(input.InstanceCode)
		if code == "" {
			return nil, apperror.NewGroupedIdentifierRequired("instance code is missing")
		}
		b.InstanceCode = &code
	} else if idf := strings.TrimSpace(input.BatchIdentifier); idf != "" {
		b.BatchIdentifier = &idf
	}

	if err := b.Validate(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// checkInstanceCode pre-checks grouped uniqueness inside the write
// transaction. The unique index is the backstop for true races.
func (s *Store) checkInstanceCode(ctx context.Context, b *Batch, excludeID *id.ID) error {
	if !b.Grouped {
		return nil
	}
	exists, err := s.repo.InstanceCodeExists(ctx, *b.InstanceCode, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewGroupedIdentifierRequired("instance code already in use").
			WithDetail("instanceCode", *b.InstanceCode)
	}
	return nil
}

func mergeDefaults(defaults, submitted entity.Attributes) entity.Attributes {
	if len(defaults) == 0 {
		return submitted
	}
	merged := defaults.Clone()
	for k, v := range submitted {
		merged[k] = v
	}
	return merged
}

func withRow(err error, row int) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("row", row)
	}
	return err
}
