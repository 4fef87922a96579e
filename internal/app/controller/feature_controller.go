package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
)

type FeatureController struct {
	featureService service.FeatureService
}

func NewFeatureController(featureService service.FeatureService) *FeatureController {
	return &FeatureController{
		featureService: featureService,
	}
}

type CreateValidatorRequest struct {
	Value string `json:"value" binding:"required"`
}

type SetProductFeatureRequest struct {
	FeatureID uint   `json:"feature_id" binding:"required"`
	Value     string `json:"value" binding:"required"`
}

// ListFeatures returns a category's features with their allowed values
// GET /api/v1/categories/:id/features
func (ctrl *FeatureController) ListFeatures(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	features, err := ctrl.featureService.ListFeatures(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err, "list features")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"features": features,
		"count":    len(features),
	})
}

// CreateFeature (staff only)
// POST /api/v1/categories/:id/features
func (ctrl *FeatureController) CreateFeature(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input service.FeatureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	feature, err := ctrl.featureService.CreateFeature(c.Request.Context(), actor, categoryID, input)
	if err != nil {
		respondError(c, err, "create feature")
		return
	}
	c.JSON(http.StatusCreated, feature)
}

// DeleteFeature (staff only)
// DELETE /api/v1/features/:id
func (ctrl *FeatureController) DeleteFeature(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	featureID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.featureService.DeleteFeature(c.Request.Context(), actor, featureID); err != nil {
		respondError(c, err, "delete feature")
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateValidator adds an allowed value (staff only)
// POST /api/v1/features/:id/validators
func (ctrl *FeatureController) CreateValidator(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	featureID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CreateValidatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	validator, err := ctrl.featureService.CreateValidator(c.Request.Context(), actor, featureID, req.Value)
	if err != nil {
		respondError(c, err, "create feature validator")
		return
	}
	c.JSON(http.StatusCreated, validator)
}

// DeleteValidator (staff only)
// DELETE /api/v1/validators/:id
func (ctrl *FeatureController) DeleteValidator(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	validatorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.featureService.DeleteValidator(c.Request.Context(), actor, validatorID); err != nil {
		respondError(c, err, "delete feature validator")
		return
	}
	c.Status(http.StatusNoContent)
}

// SetProductFeature sets one feature value on a product (owner or staff)
// PUT /api/v1/products/:id/features
func (ctrl *FeatureController) SetProductFeature(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SetProductFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	features, err := ctrl.featureService.SetProductFeature(c.Request.Context(), actor, productID, req.FeatureID, req.Value)
	if err != nil {
		respondError(c, err, "set product feature")
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": features})
}
