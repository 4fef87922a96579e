package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
)

type CategoryController struct {
	catalogService service.CatalogService
}

func NewCategoryController(catalogService service.CatalogService) *CategoryController {
	return &CategoryController{
		catalogService: catalogService,
	}
}

// ListCategories supports name, slug, search, ordering, page and page_size
// GET /api/v1/categories
func (ctrl *CategoryController) ListCategories(c *gin.Context) {
	filter, errs := parseCategoryFilter(c)
	if len(errs) > 0 {
		apperrors.RespondWithValidationError(c, errs)
		return
	}

	page, err := ctrl.catalogService.ListCategories(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetCategory
// GET /api/v1/categories/:id
func (ctrl *CategoryController) GetCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	category, err := ctrl.catalogService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// CreateCategory makes the caller the owner
// POST /api/v1/categories
func (ctrl *CategoryController) CreateCategory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := ctrl.catalogService.CreateCategory(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err, "create category")
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory (owner or staff)
// PUT /api/v1/categories/:id
func (ctrl *CategoryController) UpdateCategory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := ctrl.catalogService.UpdateCategory(c.Request.Context(), actor, id, input)
	if err != nil {
		respondError(c, err, "update category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory removes the category and its products (owner or staff)
// DELETE /api/v1/categories/:id
func (ctrl *CategoryController) DeleteCategory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.catalogService.DeleteCategory(c.Request.Context(), actor, id); err != nil {
		respondError(c, err, "delete category")
		return
	}
	c.Status(http.StatusNoContent)
}
