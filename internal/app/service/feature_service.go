package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

type FeatureInput struct {
	FeatureName       string  `json:"feature_name"`
	FeatureFilterName string  `json:"feature_filter_name"`
	Unit              *string `json:"unit"`
}

type FeatureService interface {
	ListFeatures(ctx context.Context, categoryID uint) ([]model.CategoryFeature, error)
	CreateFeature(ctx context.Context, actor Actor, categoryID uint, input FeatureInput) (*model.CategoryFeature, error)
	DeleteFeature(ctx context.Context, actor Actor, featureID uint) error
	CreateValidator(ctx context.Context, actor Actor, featureID uint, value string) (*model.FeatureValidator, error)
	DeleteValidator(ctx context.Context, actor Actor, validatorID uint) error
	SetProductFeature(ctx context.Context, actor Actor, productID, featureID uint, value string) (map[string]string, error)
	ProductFeatures(ctx context.Context, productID uint) (map[string]string, error)
}

type featureService struct {
	db           *gorm.DB
	featureRepo  repository.FeatureRepository
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
}

func NewFeatureService(
	db *gorm.DB,
	featureRepo repository.FeatureRepository,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
) FeatureService {
	return &featureService{
		db:           db,
		featureRepo:  featureRepo,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
	}
}

func (s *featureService) features(ctx context.Context) repository.FeatureRepository {
	return s.featureRepo.WithTx(s.db.WithContext(ctx))
}

func (s *featureService) ListFeatures(ctx context.Context, categoryID uint) ([]model.CategoryFeature, error) {
	if _, err := s.categoryRepo.WithTx(s.db.WithContext(ctx)).FindByID(categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return s.features(ctx).ListByCategory(categoryID)
}

func (s *featureService) CreateFeature(ctx context.Context, actor Actor, categoryID uint, input FeatureInput) (*model.CategoryFeature, error) {
	if !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	if _, err := s.categoryRepo.WithTx(s.db.WithContext(ctx)).FindByID(categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	fields := fieldErrors{}
	name := strings.TrimSpace(input.FeatureName)
	if name == "" {
		fields.add("feature_name", "This field is required")
	}
	filterName := strings.TrimSpace(input.FeatureFilterName)
	if filterName == "" {
		filterName = strings.ReplaceAll(util.Slugify(name), "-", "_")
	}
	if !util.IsValidSlug(filterName) {
		fields.add("feature_filter_name", "Use lowercase letters, numbers and underscores")
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	feature := &model.CategoryFeature{
		CategoryID:        categoryID,
		FeatureName:       name,
		FeatureFilterName: filterName,
		Unit:              input.Unit,
	}
	if err := s.features(ctx).CreateFeature(feature); err != nil {
		if isDuplicateKey(err) {
			return nil, newValidationError("feature_filter_name", "This category already has a feature with this filter name")
		}
		return nil, err
	}

	logger.Info("Category feature created", map[string]interface{}{
		"category_id": categoryID,
		"feature_id":  feature.ID,
	})
	return feature, nil
}

func (s *featureService) DeleteFeature(ctx context.Context, actor Actor, featureID uint) error {
	if !actor.IsStaff() {
		return ErrPermissionDenied
	}
	if err := s.features(ctx).DeleteFeature(featureID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFeatureNotFound
		}
		return err
	}
	return nil
}

func (s *featureService) CreateValidator(ctx context.Context, actor Actor, featureID uint, value string) (*model.FeatureValidator, error) {
	if !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, newValidationError("valid_feature_value", "This field is required")
	}

	features := s.features(ctx)
	feature, err := features.FindFeatureByID(featureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeatureNotFound
		}
		return nil, err
	}

	validator := &model.FeatureValidator{
		CategoryID:        feature.CategoryID,
		FeatureKeyID:      feature.ID,
		ValidFeatureValue: value,
	}
	if err := features.CreateValidator(validator); err != nil {
		return nil, err
	}
	return validator, nil
}

func (s *featureService) DeleteValidator(ctx context.Context, actor Actor, validatorID uint) error {
	if !actor.IsStaff() {
		return ErrPermissionDenied
	}
	if err := s.features(ctx).DeleteValidator(validatorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFeatureNotFound
		}
		return err
	}
	return nil
}

// SetProductFeature stores one feature value. The feature must belong to the
// product's category, and when validators exist the value must match one.
func (s *featureService) SetProductFeature(ctx context.Context, actor Actor, productID, featureID uint, value string) (map[string]string, error) {
	product, err := s.productRepo.WithTx(s.db.WithContext(ctx)).FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !actor.CanModify(product.OwnerID) {
		return nil, ErrPermissionDenied
	}

	features := s.features(ctx)
	feature, err := features.FindFeatureByID(featureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeatureNotFound
		}
		return nil, err
	}
	if feature.CategoryID != product.CategoryID {
		return nil, newValidationError("feature_id", "Feature does not belong to the product's category")
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, newValidationError("value", "This field is required")
	}
	if len(feature.Validators) > 0 && !allowedValue(feature.Validators, value) {
		return nil, newValidationError("value", "Value is not allowed for this feature")
	}

	if err := features.UpsertProductFeature(&model.ProductFeature{
		ProductID: productID,
		FeatureID: featureID,
		Value:     value,
	}); err != nil {
		return nil, err
	}

	logger.Info("Product feature set", map[string]interface{}{
		"product_id": productID,
		"feature_id": featureID,
	})
	return s.ProductFeatures(ctx, productID)
}

func allowedValue(validators []model.FeatureValidator, value string) bool {
	for _, v := range validators {
		if v.ValidFeatureValue == value {
			return true
		}
	}
	return false
}

func (s *featureService) ProductFeatures(ctx context.Context, productID uint) (map[string]string, error) {
	values, err := s.features(ctx).ListProductFeatures(productID)
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(values))
	for _, v := range values {
		result[v.Feature.FeatureName] = v.Display()
	}
	return result, nil
}
