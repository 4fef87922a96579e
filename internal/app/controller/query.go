package controller

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/shopspring/decimal"
)

// queryErrors collects bad query parameters so they are reported together.
type queryErrors map[string]string

func (q queryErrors) uint(c *gin.Context, key string) *uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		q[key] = "A valid integer is required"
		return nil
	}
	v := uint(n)
	return &v
}

func (q queryErrors) positiveInt(c *gin.Context, key string) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		q[key] = "A positive integer is required"
		return 0
	}
	return n
}

func (q queryErrors) decimal(c *gin.Context, key string) *decimal.Decimal {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		q[key] = "A valid number is required"
		return nil
	}
	return &d
}

func (q queryErrors) page(c *gin.Context) repository.Page {
	return repository.Page{
		Number: q.positiveInt(c, "page"),
		Size:   q.positiveInt(c, "page_size"),
	}
}

func parseCategoryFilter(c *gin.Context) (repository.CategoryFilter, queryErrors) {
	errs := queryErrors{}
	filter := repository.CategoryFilter{
		Name:     c.Query("name"),
		Slug:     c.Query("slug"),
		Search:   strings.TrimSpace(c.Query("search")),
		Ordering: c.Query("ordering"),
		Page:     errs.page(c),
	}
	return filter, errs
}

func parseProductFilter(c *gin.Context) (repository.ProductFilter, queryErrors) {
	errs := queryErrors{}
	filter := repository.ProductFilter{
		CategoryID:   errs.uint(c, "category"),
		CategorySlug: c.Query("category_slug"),
		Title:        c.Query("title"),
		Slug:         c.Query("slug"),
		PriceMin:     errs.decimal(c, "price_min"),
		PriceMax:     errs.decimal(c, "price_max"),
		OwnerID:      errs.uint(c, "owner"),
		Search:       strings.TrimSpace(c.Query("search")),
		Ordering:     c.Query("ordering"),
		Page:         errs.page(c),
	}

	if raw := c.Query("product_type"); raw != "" {
		pt, err := model.ParseProductType(raw)
		if err != nil {
			errs["product_type"] = "Unknown product type"
		} else {
			filter.ProductType = &pt
		}
	}
	return filter, errs
}
