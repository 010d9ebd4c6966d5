package handlers

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/core/id"
	"batchline/internal/domain/attrschema"
	"batchline/internal/domain/ledger"
	"batchline/internal/infrastructure/http/v1/dto"
)

// AttributesHandler handles attribute validation previews.
type AttributesHandler struct {
	*BaseHandler
	resolver  ledger.SchemaResolver
	validator *attrschema.Validator
}

// NewAttributesHandler creates a new attribute validation handler.
func NewAttributesHandler(base *BaseHandler, resolver ledger.SchemaResolver, validator *attrschema.Validator) *AttributesHandler {
	return &AttributesHandler{
		BaseHandler: base,
		resolver:    resolver,
		validator:   validator,
	}
}

// Validate handles POST /attributes/validate. It runs the same check a
// write would run, without writing. An unknown category is a real error;
// a failing attribute map is a regular response.
func (h *AttributesHandler) Validate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ValidateAttributesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var categoryID *id.ID
	if req.CategoryID != nil {
		parsed, _ := id.Parse(*req.CategoryID)
		categoryID = &parsed
	}

	schema, err := h.resolver.SchemaFor(ctx, categoryID)
	if err != nil {
		h.Error(c, err)
		return
	}

	validationErr := h.validator.Validate(ctx, schema, req.Attributes)
	h.OK(c, dto.NewValidateAttributesResponse(string(schema.Archetype), validationErr))
}
