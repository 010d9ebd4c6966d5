package handlers

import (
	"github.com/gin-gonic/gin"

	"batchline/internal/core/id"
	"batchline/internal/domain/recipe"
	"batchline/internal/infrastructure/http/v1/dto"
)

// RecipeHandler handles HTTP requests for the recipe registry.
type RecipeHandler struct {
	*BaseHandler
	service *recipe.Service
}

// NewRecipeHandler creates a new recipe handler.
func NewRecipeHandler(base *BaseHandler, service *recipe.Service) *RecipeHandler {
	return &RecipeHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /recipes
func (h *RecipeHandler) Create(c *gin.Context) {
	var req dto.CreateRecipeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	r := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), r); err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.FromRecipe(r))
}

// List handles GET /recipes
func (h *RecipeHandler) List(c *gin.Context) {
	var req dto.RecipeListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	// A virtual product filter short-circuits the generic listing.
	if req.VirtualProductID != "" {
		virtualProductID, _ := id.Parse(req.VirtualProductID)
		recipes, err := h.service.ListByVirtualProduct(c.Request.Context(), virtualProductID, req.ActiveOnly)
		if err != nil {
			h.Error(c, err)
			return
		}
		items := dto.FromRecipes(recipes)
		h.OK(c, dto.RecipeListResponse{
			Items:      items,
			TotalCount: int64(len(items)),
			Limit:      len(items),
			Offset:     0,
		})
		return
	}

	result, err := h.service.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.RecipeListResponse{
		Items:      dto.FromRecipes(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /recipes/:id
func (h *RecipeHandler) Get(c *gin.Context) {
	recipeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), recipeID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRecipe(r))
}

// Deactivate handles POST /recipes/:id/deactivate
func (h *RecipeHandler) Deactivate(c *gin.Context) {
	recipeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.Deactivate(c.Request.Context(), recipeID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRecipe(r))
}
