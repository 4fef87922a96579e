package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RelationInput updates a user's relation to a product. Nil fields are left unchanged.
type RelationInput struct {
	Like        *bool `json:"like"`
	InBookmarks *bool `json:"in_bookmarks"`
	Rate        *int  `json:"rate"`
}

type RatingService interface {
	SetRating(ctx context.Context, productID uint) (*model.Product, error)
	UpsertRelation(ctx context.Context, userID, productID uint, input RelationInput) (*model.UserProductRelation, error)
	GetRelation(ctx context.Context, userID, productID uint) (*model.UserProductRelation, error)
	RefreshAll(ctx context.Context) (int, error)
}

type ratingService struct {
	db           *gorm.DB
	productRepo  repository.ProductRepository
	relationRepo repository.ProductRelationRepository
}

func NewRatingService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	relationRepo repository.ProductRelationRepository,
) RatingService {
	return &ratingService{
		db:           db,
		productRepo:  productRepo,
		relationRepo: relationRepo,
	}
}

// AggregateRatings returns the mean of the non-null rates rounded half up to
// one decimal, or null when nobody rated, plus the number of likes.
func AggregateRatings(relations []model.UserProductRelation) (decimal.NullDecimal, int) {
	sum := decimal.Zero
	rated := 0
	likes := 0
	for _, rel := range relations {
		if rel.Like {
			likes++
		}
		if rel.Rate != nil {
			sum = sum.Add(decimal.NewFromInt(int64(*rel.Rate)))
			rated++
		}
	}
	if rated == 0 {
		return decimal.NullDecimal{}, likes
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(rated))).Round(1)), likes
}

func (s *ratingService) setRating(tx *gorm.DB, productID uint) error {
	relations, err := s.relationRepo.WithTx(tx).ListByProduct(productID)
	if err != nil {
		return err
	}

	rating, likes := AggregateRatings(relations)
	if err := s.productRepo.WithTx(tx).UpdateAggregates(productID, rating, likes); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	logger.Debug("Product rating refreshed", map[string]interface{}{
		"product_id": productID,
		"rating":     rating,
		"likes":      likes,
	})
	return nil
}

func (s *ratingService) SetRating(ctx context.Context, productID uint) (*model.Product, error) {
	db := s.db.WithContext(ctx)
	if err := db.Transaction(func(tx *gorm.DB) error {
		return s.setRating(tx, productID)
	}); err != nil {
		return nil, err
	}
	return s.productRepo.WithTx(db).FindByID(productID)
}

func (s *ratingService) UpsertRelation(ctx context.Context, userID, productID uint, input RelationInput) (*model.UserProductRelation, error) {
	if input.Rate != nil && (*input.Rate < model.MinRate || *input.Rate > model.MaxRate) {
		return nil, newValidationError("rate", fmt.Sprintf("must be between %d and %d", model.MinRate, model.MaxRate))
	}

	var relation *model.UserProductRelation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.productRepo.WithTx(tx).FindByID(productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		relations := s.relationRepo.WithTx(tx)
		rel, err := relations.FindOrCreate(userID, productID)
		if err != nil {
			return err
		}
		if input.Like != nil {
			rel.Like = *input.Like
		}
		if input.InBookmarks != nil {
			rel.InBookmarks = *input.InBookmarks
		}
		if input.Rate != nil {
			rate := *input.Rate
			rel.Rate = &rate
		}
		if err := relations.Save(rel); err != nil {
			return err
		}
		relation = rel
		return s.setRating(tx, productID)
	})
	if err != nil {
		logger.Warn("Failed to update product relation", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.Info("Product relation updated", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"like":       relation.Like,
		"rate":       relation.Rate,
	})
	return relation, nil
}

// GetRelation returns the stored relation or an empty one when the user never
// interacted with the product.
func (s *ratingService) GetRelation(ctx context.Context, userID, productID uint) (*model.UserProductRelation, error) {
	relation, err := s.relationRepo.WithTx(s.db.WithContext(ctx)).Find(userID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if _, err := s.productRepo.WithTx(s.db.WithContext(ctx)).FindByID(productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		return &model.UserProductRelation{UserID: userID, ProductID: productID}, nil
	}
	return relation, err
}

// RefreshAll recomputes every product and reports how many were refreshed.
func (s *ratingService) RefreshAll(ctx context.Context) (int, error) {
	db := s.db.WithContext(ctx)
	ids, err := s.productRepo.WithTx(db).ListIDs()
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			return s.setRating(tx, id)
		}); err != nil {
			if errors.Is(err, ErrProductNotFound) {
				continue
			}
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}
