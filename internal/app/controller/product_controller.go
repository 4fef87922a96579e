package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
)

type ProductController struct {
	catalogService service.CatalogService
}

func NewProductController(catalogService service.CatalogService) *ProductController {
	return &ProductController{
		catalogService: catalogService,
	}
}

// ProductResponse adds the rendered feature map and the variant descriptor.
type ProductResponse struct {
	*model.Product
	Features map[string]string     `json:"features"`
	TypeInfo model.ProductTypeInfo `json:"type_info"`
}

func newProductResponse(p *model.Product) ProductResponse {
	info, _ := p.ProductType.Info()
	return ProductResponse{
		Product:  p,
		Features: p.FeatureMap(),
		TypeInfo: info,
	}
}

// ListProducts supports category, category_slug, product_type, title, slug,
// price_min, price_max, owner, search, ordering, page and page_size
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	filter, errs := parseProductFilter(c)
	if len(errs) > 0 {
		apperrors.RespondWithValidationError(c, errs)
		return
	}

	page, err := ctrl.catalogService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list products")
		return
	}

	results := make([]ProductResponse, len(page.Results))
	for i := range page.Results {
		results[i] = newProductResponse(&page.Results[i])
	}
	c.JSON(http.StatusOK, service.PageResult[ProductResponse]{
		Count:    page.Count,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  results,
	})
}

// GetProduct accepts an id or a slug
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	product, err := ctrl.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "fetch product")
		return
	}
	c.JSON(http.StatusOK, newProductResponse(product))
}

// CreateProduct makes the caller the owner
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := ctrl.catalogService.CreateProduct(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err, "create product")
		return
	}
	c.JSON(http.StatusCreated, newProductResponse(product))
}

// UpdateProduct applies the non-empty fields (owner or staff)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := ctrl.catalogService.UpdateProduct(c.Request.Context(), actor, id, input)
	if err != nil {
		respondError(c, err, "update product")
		return
	}
	c.JSON(http.StatusOK, newProductResponse(product))
}

// DeleteProduct (owner or staff)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.catalogService.DeleteProduct(c.Request.Context(), actor, id); err != nil {
		respondError(c, err, "delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListProductTypes returns the known variants
// GET /api/v1/product-types
func (ctrl *ProductController) ListProductTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"product_types": model.ProductTypes(),
	})
}
