package dto

import (
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/allocation"
	"batchline/internal/domain/ledger"
)

// --- Request DTOs ---

// ProposeAllocationRequest asks the engine which batches would cover an
// output quantity of a virtual product.
type ProposeAllocationRequest struct {
	VirtualProductID string         `json:"virtualProductId" binding:"required,uuid"`
	OutputQuantity   types.Quantity `json:"outputQuantity" binding:"required"`
	BranchID         *string        `json:"branchId,omitempty" binding:"omitempty,uuid"`
	RecipeID         *string        `json:"recipeId,omitempty" binding:"omitempty,uuid"`
	Policy           string         `json:"policy,omitempty" binding:"omitempty,oneof=creation_order largest_first"`
}

// ToInput converts request to an engine input.
func (r *ProposeAllocationRequest) ToInput() allocation.ProposeInput {
	virtualProductID, _ := id.Parse(r.VirtualProductID)
	input := allocation.ProposeInput{
		VirtualProductID: virtualProductID,
		OutputQuantity:   r.OutputQuantity,
		Policy:           allocation.SelectionPolicy(r.Policy),
	}
	if r.BranchID != nil {
		branchID, _ := id.Parse(*r.BranchID)
		input.BranchID = &branchID
	}
	if r.RecipeID != nil {
		recipeID, _ := id.Parse(*r.RecipeID)
		input.RecipeID = &recipeID
	}
	return input
}

// AllocationLineRequest is one proposed deduction echoed back for commit.
type AllocationLineRequest struct {
	BatchID          string         `json:"batchId" binding:"required,uuid"`
	InstanceCode     *string        `json:"instanceCode,omitempty"`
	QuantityDeducted types.Quantity `json:"quantityDeducted" binding:"required"`
}

// CommitAllocationRequest carries a previously proposed allocation back
// for execution. The proposal reserved nothing, so commit re-validates
// every line against current ledger state.
type CommitAllocationRequest struct {
	RecipeID         string                  `json:"recipeId" binding:"required,uuid"`
	RecipeCode       string                  `json:"recipeCode,omitempty"`
	VirtualProductID string                  `json:"virtualProductId" binding:"required,uuid"`
	RawProductID     string                  `json:"rawProductId" binding:"required,uuid"`
	BranchID         *string                 `json:"branchId,omitempty" binding:"omitempty,uuid"`
	OutputQuantity   types.Quantity          `json:"outputQuantity" binding:"required"`
	ConversionFactor types.Quantity          `json:"conversionFactor" binding:"required"`
	RequiredQuantity types.Quantity          `json:"requiredQuantity" binding:"required"`
	SelectedTotal    types.Quantity          `json:"selectedTotal" binding:"required"`
	Lines            []AllocationLineRequest `json:"lines" binding:"required,min=1,dive"`
	Policy           string                  `json:"policy,omitempty" binding:"omitempty,oneof=creation_order largest_first"`
}

// ToProposal reassembles the domain proposal from the request.
func (r *CommitAllocationRequest) ToProposal() *allocation.Proposal {
	recipeID, _ := id.Parse(r.RecipeID)
	virtualProductID, _ := id.Parse(r.VirtualProductID)
	rawProductID, _ := id.Parse(r.RawProductID)

	p := &allocation.Proposal{
		RecipeID:         recipeID,
		RecipeCode:       r.RecipeCode,
		VirtualProductID: virtualProductID,
		RawProductID:     rawProductID,
		OutputQuantity:   r.OutputQuantity,
		ConversionFactor: r.ConversionFactor,
		RequiredQuantity: r.RequiredQuantity,
		SelectedTotal:    r.SelectedTotal,
		Lines:            make([]allocation.Line, len(r.Lines)),
		Policy:           allocation.SelectionPolicy(r.Policy),
	}
	if r.BranchID != nil {
		branchID, _ := id.Parse(*r.BranchID)
		p.BranchID = &branchID
	}
	for i, line := range r.Lines {
		batchID, _ := id.Parse(line.BatchID)
		p.Lines[i] = allocation.Line{
			BatchID:          batchID,
			InstanceCode:     line.InstanceCode,
			QuantityDeducted: line.QuantityDeducted,
		}
	}
	return p
}

// --- Response DTOs ---

// ProposalLineResponse is one proposed deduction.
type ProposalLineResponse struct {
	BatchID          string         `json:"batchId"`
	InstanceCode     *string        `json:"instanceCode,omitempty"`
	QuantityDeducted types.Quantity `json:"quantityDeducted"`
}

// ProposalResponse is an advisory allocation plan. Nothing is reserved;
// the client echoes it back on commit.
type ProposalResponse struct {
	RecipeID         string                 `json:"recipeId"`
	RecipeCode       string                 `json:"recipeCode"`
	VirtualProductID string                 `json:"virtualProductId"`
	RawProductID     string                 `json:"rawProductId"`
	BranchID         *string                `json:"branchId,omitempty"`
	OutputQuantity   types.Quantity         `json:"outputQuantity"`
	ConversionFactor types.Quantity         `json:"conversionFactor"`
	RequiredQuantity types.Quantity         `json:"requiredQuantity"`
	SelectedTotal    types.Quantity         `json:"selectedTotal"`
	Lines            []ProposalLineResponse `json:"lines"`
	Policy           string                 `json:"policy"`
}

// FromProposal converts the engine output to a response DTO.
func FromProposal(p *allocation.Proposal) *ProposalResponse {
	resp := &ProposalResponse{
		RecipeID:         p.RecipeID.String(),
		RecipeCode:       p.RecipeCode,
		VirtualProductID: p.VirtualProductID.String(),
		RawProductID:     p.RawProductID.String(),
		OutputQuantity:   p.OutputQuantity,
		ConversionFactor: p.ConversionFactor,
		RequiredQuantity: p.RequiredQuantity,
		SelectedTotal:    p.SelectedTotal,
		Lines:            make([]ProposalLineResponse, len(p.Lines)),
		Policy:           string(p.Policy),
	}
	if p.BranchID != nil {
		branchID := p.BranchID.String()
		resp.BranchID = &branchID
	}
	for i, line := range p.Lines {
		resp.Lines[i] = ProposalLineResponse{
			BatchID:          line.BatchID.String(),
			InstanceCode:     line.InstanceCode,
			QuantityDeducted: line.QuantityDeducted,
		}
	}
	return resp
}

// DeductionReceiptResponse is one executed deduction.
type DeductionReceiptResponse struct {
	OperationID      string         `json:"operationId"`
	OperationNumber  string         `json:"operationNumber"`
	BatchID          string         `json:"batchId"`
	QuantityDeducted types.Quantity `json:"quantityDeducted"`
	RemainingAfter   types.Quantity `json:"remainingAfter"`
}

// CommitAllocationResponse lists the deductions an allocation executed.
type CommitAllocationResponse struct {
	Receipts []DeductionReceiptResponse `json:"receipts"`
}

// FromDeductionReceipts converts commit results to a response DTO.
func FromDeductionReceipts(receipts []ledger.DeductionReceipt) *CommitAllocationResponse {
	resp := &CommitAllocationResponse{
		Receipts: make([]DeductionReceiptResponse, len(receipts)),
	}
	for i, rec := range receipts {
		resp.Receipts[i] = DeductionReceiptResponse{
			OperationID:      rec.OperationID.String(),
			OperationNumber:  rec.OperationNumber,
			BatchID:          rec.BatchID.String(),
			QuantityDeducted: rec.QuantityDeducted,
			RemainingAfter:   rec.RemainingAfter,
		}
	}
	return resp
}
