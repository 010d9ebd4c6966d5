package dto

import (
	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
)

// --- Request DTOs ---

// ValidateAttributesRequest checks an attribute map against a category
// schema without writing anything. A nil category means uncategorized.
type ValidateAttributesRequest struct {
	CategoryID *string           `json:"categoryId,omitempty" binding:"omitempty,uuid"`
	Attributes entity.Attributes `json:"attributes" binding:"required"`
}

// --- Response DTOs ---

// ValidateAttributesResponse reports the validation outcome. Failures
// are part of the payload, not an HTTP error: the check itself worked.
type ValidateAttributesResponse struct {
	Valid     bool           `json:"valid"`
	Archetype string         `json:"archetype"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

// NewValidateAttributesResponse builds the outcome from a validator error.
func NewValidateAttributesResponse(archetype string, err error) *ValidateAttributesResponse {
	resp := &ValidateAttributesResponse{Valid: err == nil, Archetype: archetype}
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			resp.Error = &ErrorResponse{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: appErr.Details,
			}
		} else {
			resp.Error = &ErrorResponse{
				Code:    apperror.CodeInvalidAttribute,
				Message: err.Error(),
			}
		}
	}
	return resp
}
