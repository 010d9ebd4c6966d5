package ledger

import (
	"time"

	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
)

// OperationType identifies what produced a set of journal entries.
type OperationType string

const (
	OpReceipt    OperationType = "receipt"    // batch creation / bulk import
	OpAllocation OperationType = "allocation" // committed proposal
	OpAdjustment OperationType = "adjustment" // manual +/- correction
	OpTransfer   OperationType = "transfer"   // move between branches
	OpSplit      OperationType = "split"      // slitting bulk into grouped
	OpScrap      OperationType = "scrap"      // terminal write-off
)

// Valid reports whether t is a known operation type.
func (t OperationType) Valid() bool {
	switch t {
	case OpReceipt, OpAllocation, OpAdjustment, OpTransfer, OpSplit, OpScrap:
		return true
	}
	return false
}

// NumberPrefix returns the numbering prefix for operation numbers.
func (t OperationType) NumberPrefix() string {
	switch t {
	case OpReceipt:
		return "RCP"
	case OpAllocation:
		return "ALO"
	case OpAdjustment:
		return "ADJ"
	case OpTransfer:
		return "TRF"
	case OpSplit:
		return "SPL"
	case OpScrap:
		return "SCR"
	}
	return "OPX"
}

// Operation is a journaled ledger mutation: one header per committed
// transaction, with one Entry per batch quantity movement.
type Operation struct {
	ID id.ID `db:"id" json:"id"`

	// Number is the human-readable operation number (e.g. ALO-2026-000042).
	// Issued before the transaction; rolled back operations burn theirs.
	Number string `db:"number" json:"number"`

	Type OperationType `db:"type" json:"type"`

	// BranchID is the branch the operation acted on (source branch for
	// transfers; destination is in Meta)
	BranchID *id.ID `db:"branch_id" json:"branchId,omitempty"`

	// Reason is the operator-supplied justification (required for adjust
	// and scrap)
	Reason string `db:"reason" json:"reason,omitempty"`

	// Operator identifies who ran the operation (from request context)
	Operator string `db:"operator" json:"operator"`

	// Meta carries operation-specific context: recipe id and output
	// quantity for allocations, destination branch for transfers,
	// direction for adjustments
	Meta entity.Attributes `db:"meta" json:"meta,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewOperation creates an operation header.
func NewOperation(opType OperationType, number, operator string) *Operation {
	return &Operation{
		ID:        id.New(),
		Number:    number,
		Type:      opType,
		Operator:  operator,
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a copy sharing no pointers with the original.
func (o *Operation) Clone() *Operation {
	cp := *o
	if o.BranchID != nil {
		v := *o.BranchID
		cp.BranchID = &v
	}
	cp.Meta = o.Meta.Clone()
	return &cp
}

// Direction distinguishes quantity flowing into a batch from quantity
// flowing out.
type Direction string

const (
	DirectionReceipt Direction = "receipt"
	DirectionExpense Direction = "expense"
)

// Entry is one quantity movement on one batch. Quantity is always
// positive; Direction carries the sign. RemainingAfter snapshots the
// batch's remaining quantity after this movement, so the journal replays
// without arithmetic.
type Entry struct {
	ID          id.ID          `db:"id" json:"id"`
	OperationID id.ID          `db:"operation_id" json:"operationId"`
	BatchID     id.ID          `db:"batch_id" json:"batchId"`
	Direction   Direction      `db:"direction" json:"direction"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`

	RemainingAfter types.Quantity `db:"remaining_after" json:"remainingAfter"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewEntry creates a journal entry for an operation.
func NewEntry(operationID, batchID id.ID, direction Direction, quantity, remainingAfter types.Quantity) Entry {
	return Entry{
		ID:             id.New(),
		OperationID:    operationID,
		BatchID:        batchID,
		Direction:      direction,
		Quantity:       quantity,
		RemainingAfter: remainingAfter,
		CreatedAt:      time.Now().UTC(),
	}
}

// DeductionReceipt is what a committed allocation hands back per line:
// proof of the durable deduction.
type DeductionReceipt struct {
	OperationID      id.ID          `json:"operationId"`
	OperationNumber  string         `json:"operationNumber"`
	BatchID          id.ID          `json:"batchId"`
	QuantityDeducted types.Quantity `json:"quantityDeducted"`
	RemainingAfter   types.Quantity `json:"remainingAfter"`
}
