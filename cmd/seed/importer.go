package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sheet columns, in order. The first row is a header and is skipped.
const (
	colTitle = iota
	colSlug
	colCategory
	colProductType
	colPrice
	colDescription
	colImage

	minColumns = colPrice + 1
)

var maxPrice = decimal.NewFromInt(10_000_000)

// productRow is one validated sheet row. Category holds the category slug.
type productRow struct {
	Product  model.Product
	Category string
}

type parseResult struct {
	Rows    []productRow
	Skipped map[int]string // sheet row number -> reason
}

func readRowsFromXLSX(filePath string) ([][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data found in XLSX file")
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseRows validates every data row. Invalid rows and repeated slugs are
// reported in Skipped instead of failing the whole import.
func parseRows(rows [][]string) parseResult {
	result := parseResult{Skipped: make(map[int]string)}
	seen := make(map[string]bool)

	for i, row := range rows {
		if i == 0 {
			continue
		}
		line := i + 1

		if len(row) < minColumns {
			result.Skipped[line] = "missing columns"
			continue
		}

		title := cell(row, colTitle)
		if title == "" {
			result.Skipped[line] = "empty title"
			continue
		}

		slug := cell(row, colSlug)
		if slug == "" {
			slug = util.Slugify(title)
		}
		if !util.IsValidSlug(slug) {
			result.Skipped[line] = "invalid slug"
			continue
		}
		if seen[slug] {
			result.Skipped[line] = "duplicate slug " + slug
			continue
		}

		category := util.Slugify(cell(row, colCategory))
		if category == "" {
			result.Skipped[line] = "empty category"
			continue
		}

		productType, err := model.ParseProductType(cell(row, colProductType))
		if err != nil {
			result.Skipped[line] = err.Error()
			continue
		}

		price, err := decimal.NewFromString(cell(row, colPrice))
		if err != nil || price.IsNegative() || price.Exponent() < -2 || price.GreaterThanOrEqual(maxPrice) {
			result.Skipped[line] = "invalid price"
			continue
		}

		seen[slug] = true
		result.Rows = append(result.Rows, productRow{
			Product: model.Product{
				Title:       title,
				Slug:        slug,
				ProductType: productType,
				Price:       price,
				Description: cell(row, colDescription),
				Image:       cell(row, colImage),
			},
			Category: category,
		})
	}
	return result
}

// importProducts writes rows in one transaction. Missing categories are
// created from their slug; products whose slug already exists are left alone.
// It returns the number of products inserted.
func importProducts(db *gorm.DB, rows []productRow, batchSize int) (int64, error) {
	var inserted int64
	err := db.Transaction(func(tx *gorm.DB) error {
		categories := repository.NewCategoryRepository(tx)
		categoryIDs := make(map[string]uint)

		products := make([]model.Product, 0, len(rows))
		for _, row := range rows {
			id, ok := categoryIDs[row.Category]
			if !ok {
				category, err := categories.FindBySlug(row.Category)
				if errors.Is(err, gorm.ErrRecordNotFound) {
					category = &model.Category{Name: categoryName(row.Category), Slug: row.Category}
					err = categories.Create(category)
				}
				if err != nil {
					return fmt.Errorf("category %s: %w", row.Category, err)
				}
				id = category.ID
				categoryIDs[row.Category] = id
			}

			product := row.Product
			product.CategoryID = id
			products = append(products, product)
		}

		if len(products) == 0 {
			return nil
		}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).CreateInBatches(&products, batchSize)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Product import failed", err, map[string]interface{}{
			"rows": len(rows),
		})
		return 0, err
	}
	return inserted, nil
}

// categoryName turns "home-audio" into "Home audio".
func categoryName(slug string) string {
	name := strings.ReplaceAll(slug, "-", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
