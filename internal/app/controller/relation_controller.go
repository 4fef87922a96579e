package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
)

type RelationController struct {
	ratingService service.RatingService
}

func NewRelationController(ratingService service.RatingService) *RelationController {
	return &RelationController{
		ratingService: ratingService,
	}
}

// GetRelation returns the caller's like, bookmark and rate for a product
// GET /api/v1/products/:id/relation
func (ctrl *RelationController) GetRelation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	relation, err := ctrl.ratingService.GetRelation(c.Request.Context(), actor.UserID, productID)
	if err != nil {
		respondError(c, err, "fetch product relation")
		return
	}
	c.JSON(http.StatusOK, relation)
}

// UpdateRelation upserts the caller's relation and refreshes the product rating
// PUT /api/v1/products/:id/relation
func (ctrl *RelationController) UpdateRelation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input service.RelationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	relation, err := ctrl.ratingService.UpsertRelation(c.Request.Context(), actor.UserID, productID, input)
	if err != nil {
		respondError(c, err, "update product relation")
		return
	}
	c.JSON(http.StatusOK, relation)
}
