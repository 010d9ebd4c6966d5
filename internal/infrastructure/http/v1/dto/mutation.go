package dto

import (
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/mutation"
)

// --- Request DTOs ---

// AdjustStockRequest represents a manual stock correction.
type AdjustStockRequest struct {
	Direction string         `json:"direction" binding:"required,oneof=increase decrease"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	Reason    string         `json:"reason" binding:"required"`
}

// ToInput converts request to a service input.
func (r *AdjustStockRequest) ToInput(batchID id.ID) mutation.AdjustInput {
	return mutation.AdjustInput{
		BatchID:   batchID,
		Direction: mutation.AdjustDirection(r.Direction),
		Quantity:  r.Quantity,
		Reason:    r.Reason,
	}
}

// TransferStockRequest moves quantity from a batch to another branch.
type TransferStockRequest struct {
	DestinationBranchID string         `json:"destinationBranchId" binding:"required,uuid"`
	Quantity            types.Quantity `json:"quantity" binding:"required"`
}

// ToInput converts request to a service input.
func (r *TransferStockRequest) ToInput(batchID id.ID) mutation.TransferInput {
	destinationID, _ := id.Parse(r.DestinationBranchID)
	return mutation.TransferInput{
		BatchID:             batchID,
		DestinationBranchID: destinationID,
		Quantity:            r.Quantity,
	}
}

// SplitOutputRequest describes one unit carved out of a bulk batch.
type SplitOutputRequest struct {
	InstanceCode string            `json:"instanceCode" binding:"required"`
	Quantity     types.Quantity    `json:"quantity" binding:"required"`
	BatchTypeID  *string           `json:"batchTypeId,omitempty" binding:"omitempty,uuid"`
	Attributes   entity.Attributes `json:"attributes,omitempty"`
}

// SplitBatchRequest cuts a bulk batch into individually tracked units.
type SplitBatchRequest struct {
	Outputs []SplitOutputRequest `json:"outputs" binding:"required,min=1,dive"`
}

// ToInput converts request to a service input.
func (r *SplitBatchRequest) ToInput(batchID id.ID) mutation.SplitInput {
	input := mutation.SplitInput{
		BatchID: batchID,
		Outputs: make([]mutation.SplitOutput, len(r.Outputs)),
	}
	for i, out := range r.Outputs {
		input.Outputs[i] = mutation.SplitOutput{
			InstanceCode:       out.InstanceCode,
			Quantity:           out.Quantity,
			AttributeOverrides: out.Attributes,
		}
		if out.BatchTypeID != nil {
			batchTypeID, _ := id.Parse(*out.BatchTypeID)
			input.Outputs[i].BatchTypeID = &batchTypeID
		}
	}
	return input
}

// ScrapBatchRequest writes off a batch.
type ScrapBatchRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ToInput converts request to a service input.
func (r *ScrapBatchRequest) ToInput(batchID id.ID) mutation.ScrapInput {
	return mutation.ScrapInput{
		BatchID: batchID,
		Reason:  r.Reason,
	}
}

// --- Response DTOs ---

// TransferStockResponse reports a transfer's outcome. Created is set
// only for partial moves.
type TransferStockResponse struct {
	Source  *BatchResponse `json:"source"`
	Created *BatchResponse `json:"created,omitempty"`
}

// FromTransferResult converts a transfer result to a response DTO.
func FromTransferResult(res *mutation.TransferResult) *TransferStockResponse {
	resp := &TransferStockResponse{Source: FromBatch(res.Source)}
	if res.Created != nil {
		resp.Created = FromBatch(res.Created)
	}
	return resp
}

// SplitBatchResponse lists the batches created by a split.
type SplitBatchResponse struct {
	Outputs []BatchResponse `json:"outputs"`
}
