package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PageResult is one page of a list endpoint.
type PageResult[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

func newPageResult[T any](items []T, total int64, page repository.Page) PageResult[T] {
	page = page.Normalize()
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{Count: total, Page: page.Number, PageSize: page.Size, Results: items}
}

type CategoryInput struct {
	Name string  `json:"name"`
	Slug *string `json:"slug"`
}

type ProductInput struct {
	Title       string  `json:"title"`
	Slug        *string `json:"slug"`
	CategoryID  uint    `json:"category_id"`
	ProductType string  `json:"product_type"`
	Price       string  `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

type CatalogService interface {
	ListCategories(ctx context.Context, filter repository.CategoryFilter) (PageResult[model.Category], error)
	GetCategory(ctx context.Context, id uint) (*model.Category, error)
	CreateCategory(ctx context.Context, actor Actor, input CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, actor Actor, id uint, input CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, actor Actor, id uint) error

	ListProducts(ctx context.Context, filter repository.ProductFilter) (PageResult[model.Product], error)
	GetProduct(ctx context.Context, idOrSlug string) (*model.Product, error)
	CreateProduct(ctx context.Context, actor Actor, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, id uint, input ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, id uint) error
}

type catalogService struct {
	db           *gorm.DB
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	cartRepo     repository.CartRepository
}

func NewCatalogService(
	db *gorm.DB,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
) CatalogService {
	return &catalogService{
		db:           db,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cartRepo:     cartRepo,
	}
}

// checkSlug validates an explicit slug and rejects one already in use by
// another row. taken returns the id of the row holding slug, or not found.
func checkSlug(fields fieldErrors, slug *string, selfID uint, taken func(string) (uint, error)) error {
	if slug == nil {
		return nil
	}
	value := strings.TrimSpace(*slug)
	if !util.IsValidSlug(value) {
		fields.add("slug", "Enter a valid slug of lowercase letters, numbers, underscores or hyphens")
		return nil
	}
	id, err := taken(value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if id != selfID {
		fields.add("slug", "This slug is already in use")
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

func (s *catalogService) ListCategories(ctx context.Context, filter repository.CategoryFilter) (PageResult[model.Category], error) {
	categories, total, err := s.categoryRepo.WithTx(s.db.WithContext(ctx)).FindWithFilter(filter)
	if err != nil {
		return PageResult[model.Category]{}, err
	}
	return newPageResult(categories, total, filter.Page), nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uint) (*model.Category, error) {
	category, err := s.categoryRepo.WithTx(s.db.WithContext(ctx)).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *catalogService) categorySlugOwner(ctx context.Context) func(string) (uint, error) {
	return func(slug string) (uint, error) {
		category, err := s.categoryRepo.WithTx(s.db.WithContext(ctx)).FindBySlug(slug)
		if err != nil {
			return 0, err
		}
		return category.ID, nil
	}
}

func (s *catalogService) CreateCategory(ctx context.Context, actor Actor, input CategoryInput) (*model.Category, error) {
	fields := fieldErrors{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields.add("name", "This field is required")
	}
	if err := checkSlug(fields, input.Slug, 0, s.categorySlugOwner(ctx)); err != nil {
		return nil, err
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, OwnerID: &actor.UserID}
	if input.Slug != nil {
		category.Slug = strings.TrimSpace(*input.Slug)
	}
	if err := s.categoryRepo.WithTx(s.db.WithContext(ctx)).Create(category); err != nil {
		if isDuplicateKey(err) {
			return nil, newValidationError("slug", "This slug is already in use")
		}
		return nil, err
	}

	logger.Info("Category created", map[string]interface{}{
		"category_id": category.ID,
		"slug":        category.Slug,
		"owner_id":    actor.UserID,
	})
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, actor Actor, id uint, input CategoryInput) (*model.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(category.OwnerID) {
		return nil, ErrPermissionDenied
	}

	fields := fieldErrors{}
	if name := strings.TrimSpace(input.Name); name != "" {
		category.Name = name
	}
	if err := checkSlug(fields, input.Slug, category.ID, s.categorySlugOwner(ctx)); err != nil {
		return nil, err
	}
	if err := fields.err(); err != nil {
		return nil, err
	}
	if input.Slug != nil {
		category.Slug = strings.TrimSpace(*input.Slug)
	}

	if err := s.categoryRepo.WithTx(s.db.WithContext(ctx)).Update(category); err != nil {
		if isDuplicateKey(err) {
			return nil, newValidationError("slug", "This slug is already in use")
		}
		return nil, err
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, actor Actor, id uint) error {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(category.OwnerID) {
		logger.Warn("Category delete denied", map[string]interface{}{
			"category_id": id,
			"user_id":     actor.UserID,
		})
		return ErrPermissionDenied
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		productIDs, err := s.productRepo.WithTx(tx).ListIDsByCategory(id)
		if err != nil {
			return err
		}
		for _, productID := range productIDs {
			if err := s.deleteProduct(tx, productID); err != nil {
				return err
			}
		}
		return s.categoryRepo.WithTx(tx).Delete(id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	logger.Info("Category deleted", map[string]interface{}{
		"category_id": id,
		"user_id":     actor.UserID,
	})
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (PageResult[model.Product], error) {
	products, total, err := s.productRepo.WithTx(s.db.WithContext(ctx)).FindWithFilter(filter)
	if err != nil {
		return PageResult[model.Product]{}, err
	}
	return newPageResult(products, total, filter.Page), nil
}

// GetProduct accepts a numeric id or a slug.
func (s *catalogService) GetProduct(ctx context.Context, idOrSlug string) (*model.Product, error) {
	products := s.productRepo.WithTx(s.db.WithContext(ctx))

	var (
		product *model.Product
		err     error
	)
	if id, ok := parseID(idOrSlug); ok {
		product, err = products.FindByID(id)
	} else {
		product, err = products.FindBySlug(idOrSlug)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *catalogService) productSlugOwner(ctx context.Context) func(string) (uint, error) {
	return func(slug string) (uint, error) {
		product, err := s.productRepo.WithTx(s.db.WithContext(ctx)).FindBySlug(slug)
		if err != nil {
			return 0, err
		}
		return product.ID, nil
	}
}

// applyProductInput validates input onto product. partial leaves empty fields unchanged.
func (s *catalogService) applyProductInput(ctx context.Context, product *model.Product, input ProductInput, partial bool) error {
	fields := fieldErrors{}

	if title := strings.TrimSpace(input.Title); title != "" {
		product.Title = title
	} else if !partial {
		fields.add("title", "This field is required")
	}

	if input.CategoryID != 0 {
		if _, err := s.categoryRepo.WithTx(s.db.WithContext(ctx)).FindByID(input.CategoryID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			fields.add("category_id", "Category does not exist")
		}
		product.CategoryID = input.CategoryID
	} else if !partial {
		fields.add("category_id", "This field is required")
	}

	if input.ProductType != "" || !partial {
		productType, err := model.ParseProductType(input.ProductType)
		if err != nil {
			fields.add("product_type", "Unknown product type")
		}
		product.ProductType = productType
	}

	if input.Price != "" {
		price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
		switch {
		case err != nil:
			fields.add("price", "A valid number is required")
		case price.IsNegative():
			fields.add("price", "Ensure this value is greater than or equal to 0")
		case price.Exponent() < -2:
			fields.add("price", "Ensure that there are no more than 2 decimal places")
		case price.GreaterThanOrEqual(decimal.NewFromInt(10_000_000)):
			fields.add("price", "Ensure that there are no more than 9 digits in total")
		default:
			product.Price = price
		}
	} else if !partial {
		fields.add("price", "This field is required")
	}

	if input.Description != "" || !partial {
		product.Description = input.Description
	}
	if input.Image != "" || !partial {
		product.Image = input.Image
	}

	if err := checkSlug(fields, input.Slug, product.ID, s.productSlugOwner(ctx)); err != nil {
		return err
	}
	if input.Slug != nil {
		product.Slug = strings.TrimSpace(*input.Slug)
	}
	return fields.err()
}

func (s *catalogService) CreateProduct(ctx context.Context, actor Actor, input ProductInput) (*model.Product, error) {
	product := &model.Product{OwnerID: &actor.UserID}
	if err := s.applyProductInput(ctx, product, input, false); err != nil {
		return nil, err
	}

	products := s.productRepo.WithTx(s.db.WithContext(ctx))
	if err := products.Create(product); err != nil {
		if isDuplicateKey(err) {
			return nil, newValidationError("slug", "This slug is already in use")
		}
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id":   product.ID,
		"slug":         product.Slug,
		"product_type": product.ProductType,
		"owner_id":     actor.UserID,
	})
	return products.FindByID(product.ID)
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor Actor, id uint, input ProductInput) (*model.Product, error) {
	products := s.productRepo.WithTx(s.db.WithContext(ctx))
	product, err := products.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !actor.CanModify(product.OwnerID) {
		return nil, ErrPermissionDenied
	}

	if err := s.applyProductInput(ctx, product, input, true); err != nil {
		return nil, err
	}
	if err := products.Update(product); err != nil {
		if isDuplicateKey(err) {
			return nil, newValidationError("slug", "This slug is already in use")
		}
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": id,
		"user_id":    actor.UserID,
	})
	return products.FindByID(id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor Actor, id uint) error {
	products := s.productRepo.WithTx(s.db.WithContext(ctx))
	product, err := products.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if !actor.CanModify(product.OwnerID) {
		logger.Warn("Product delete denied", map[string]interface{}{
			"product_id": id,
			"user_id":    actor.UserID,
		})
		return ErrPermissionDenied
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.deleteProduct(tx, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
		"user_id":    actor.UserID,
	})
	return nil
}

// deleteProduct drops the product from every open cart, keeping their totals
// in step, and then deletes it.
func (s *catalogService) deleteProduct(tx *gorm.DB, id uint) error {
	carts := s.cartRepo.WithTx(tx)
	cartIDs, err := carts.ListOpenIDsWithProduct(id)
	if err != nil {
		return err
	}
	for _, cartID := range cartIDs {
		cart, err := carts.FindByIDForUpdate(cartID)
		if err != nil {
			return err
		}
		item, err := carts.FindItem(cartID, id)
		if err != nil {
			return err
		}
		if err := carts.DeleteItem(item); err != nil {
			return err
		}
		if err := recalculate(carts, cart); err != nil {
			return err
		}
	}
	return s.productRepo.WithTx(tx).Delete(id)
}
