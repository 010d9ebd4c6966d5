package dto

import (
	"batchline/internal/core/id"
	"batchline/internal/core/types"
	"batchline/internal/domain/recipe"
)

// --- Request DTOs ---

// CreateRecipeRequest represents a request to register a recipe.
// Code is optional; an empty code is generated.
type CreateRecipeRequest struct {
	Code             string         `json:"code,omitempty"`
	Name             string         `json:"name" binding:"required"`
	VirtualProductID string         `json:"virtualProductId" binding:"required,uuid"`
	RawProductID     string         `json:"rawProductId" binding:"required,uuid"`
	ConversionFactor types.Quantity `json:"conversionFactor" binding:"required"`
}

// ToEntity converts request to domain entity.
func (r *CreateRecipeRequest) ToEntity() *recipe.Recipe {
	virtualProductID, _ := id.Parse(r.VirtualProductID)
	rawProductID, _ := id.Parse(r.RawProductID)
	return recipe.NewRecipe(r.Code, r.Name, virtualProductID, rawProductID, r.ConversionFactor)
}

// RecipeListRequest contains recipe listing filters.
type RecipeListRequest struct {
	CatalogListRequest
	VirtualProductID string `form:"virtualProductId" binding:"omitempty,uuid"`
	ActiveOnly       bool   `form:"activeOnly"`
}

// --- Response DTOs ---

// RecipeResponse represents a recipe in API responses.
type RecipeResponse struct {
	CatalogResponse
	VirtualProductID string         `json:"virtualProductId"`
	RawProductID     string         `json:"rawProductId"`
	ConversionFactor types.Quantity `json:"conversionFactor"`
	IsActive         bool           `json:"isActive"`
}

// FromRecipe converts domain entity to response DTO.
func FromRecipe(r *recipe.Recipe) *RecipeResponse {
	return &RecipeResponse{
		CatalogResponse:  FromCatalog(r.Catalog),
		VirtualProductID: r.VirtualProductID.String(),
		RawProductID:     r.RawProductID.String(),
		ConversionFactor: r.ConversionFactor,
		IsActive:         r.IsActive,
	}
}

// RecipeListResponse is the paginated recipe listing.
type RecipeListResponse struct {
	Items      []RecipeResponse `json:"items"`
	TotalCount int64            `json:"totalCount"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

// FromRecipes converts a slice of recipes.
func FromRecipes(recipes []*recipe.Recipe) []RecipeResponse {
	items := make([]RecipeResponse, len(recipes))
	for i, r := range recipes {
		items[i] = *FromRecipe(r)
	}
	return items
}
