package repository

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository

	Create(cart *model.Cart) error
	FindByID(id uint) (*model.Cart, error)
	FindByIDForUpdate(id uint) (*model.Cart, error)
	FindWithItems(id uint) (*model.Cart, error)
	FindOpenByOwner(customerID uint) (*model.Cart, error)
	FindOrCreateBySessionToken(token string) (*model.Cart, error)
	SaveTotals(cart *model.Cart) error
	MarkInOrder(cartID uint) error

	FindItem(cartID, productID uint) (*model.CartItem, error)
	ListItems(cartID uint) ([]model.CartItem, error)
	SaveItem(item *model.CartItem) error
	DeleteItem(item *model.CartItem) error
	DeleteItems(cartID uint) error

	ListOpenIDs() ([]uint, error)
	ListOpenIDsWithProduct(productID uint) ([]uint, error)
	DeleteStaleAnonymous(before time.Time) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

func (r *cartRepository) Create(cart *model.Cart) error {
	logger.Debug("Creating cart in database", map[string]interface{}{
		"owner_id":     cart.OwnerID,
		"is_anonymous": cart.IsAnonymous,
	})

	if err := r.db.Omit(clause.Associations).Create(cart).Error; err != nil {
		logger.Error("Failed to create cart in database", err, map[string]interface{}{
			"owner_id": cart.OwnerID,
		})
		return err
	}

	logger.Debug("Cart created in database", map[string]interface{}{
		"cart_id": cart.ID,
	})
	return nil
}

func (r *cartRepository) FindByID(id uint) (*model.Cart, error) {
	var cart model.Cart
	if err := r.db.First(&cart, id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByIDForUpdate locks the cart row until the surrounding transaction ends.
// Every mutation of the cart's items goes through this lock first.
func (r *cartRepository) FindByIDForUpdate(id uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cart, id).Error
	if err != nil {
		logger.Debug("Failed to lock cart", map[string]interface{}{
			"cart_id": id,
			"error":   err.Error(),
		})
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindWithItems(id uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.id ASC")
		}).
		Preload("Items.Product").
		First(&cart, id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindOpenByOwner(customerID uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.Where("owner_id = ? AND in_order = ?", customerID, false).
		Order("id ASC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindOrCreateBySessionToken relies on the unique session_token index so two
// concurrent first requests for one token still end up with a single row.
func (r *cartRepository) FindOrCreateBySessionToken(token string) (*model.Cart, error) {
	cart := &model.Cart{
		SessionToken: &token,
		IsAnonymous:  true,
	}
	err := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_token"}},
		DoNothing: true,
	}).Create(cart).Error
	if err != nil {
		logger.Error("Failed to create anonymous cart", err, nil)
		return nil, err
	}

	var found model.Cart
	if err := r.db.Where("session_token = ?", token).First(&found).Error; err != nil {
		logger.Error("Failed to load anonymous cart", err, nil)
		return nil, err
	}
	return &found, nil
}

func (r *cartRepository) SaveTotals(cart *model.Cart) error {
	err := r.db.Model(&model.Cart{}).Where("id = ?", cart.ID).Updates(map[string]interface{}{
		"total_item_count": cart.TotalItemCount,
		"total_price":      cart.TotalPrice,
		"version":          cart.Version,
		"updated_at":       time.Now(),
	}).Error
	if err != nil {
		logger.Error("Failed to save cart totals", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return err
	}

	logger.Debug("Cart totals saved", map[string]interface{}{
		"cart_id":          cart.ID,
		"total_item_count": cart.TotalItemCount,
		"total_price":      cart.TotalPrice.StringFixed(2),
		"version":          cart.Version,
	})
	return nil
}

func (r *cartRepository) MarkInOrder(cartID uint) error {
	result := r.db.Model(&model.Cart{}).
		Where("id = ? AND in_order = ?", cartID, false).
		Update("in_order", true)
	if result.Error != nil {
		logger.Error("Failed to close cart", result.Error, map[string]interface{}{
			"cart_id": cartID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) FindItem(cartID, productID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Preload("Product").
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) ListItems(cartID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := r.db.Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
		logger.Error("Failed to list cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}
	return items, nil
}

// SaveItem inserts or updates the item. The loaded Product is only read by
// the BeforeSave hook and never written back.
func (r *cartRepository) SaveItem(item *model.CartItem) error {
	logger.Debug("Saving cart item", map[string]interface{}{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	if err := r.db.Omit(clause.Associations).Save(item).Error; err != nil {
		logger.Error("Failed to save cart item", err, map[string]interface{}{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteItem(item *model.CartItem) error {
	if err := r.db.Delete(&model.CartItem{}, item.ID).Error; err != nil {
		logger.Error("Failed to delete cart item", err, map[string]interface{}{
			"cart_item_id": item.ID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteItems(cartID uint) error {
	if err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) ListOpenIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Cart{}).Where("in_order = ?", false).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *cartRepository) ListOpenIDsWithProduct(productID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Cart{}).
		Where("in_order = ? AND id IN (?)", false,
			r.db.Model(&model.CartItem{}).Select("cart_id").Where("product_id = ?", productID)).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// DeleteStaleAnonymous removes anonymous carts untouched since before, items first.
func (r *cartRepository) DeleteStaleAnonymous(before time.Time) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&model.Cart{}).Select("id").
			Where("is_anonymous = ? AND in_order = ? AND updated_at < ?", true, false, before)

		if err := tx.Where("cart_id IN (?)", stale).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("is_anonymous = ? AND in_order = ? AND updated_at < ?", true, false, before).
			Delete(&model.Cart{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to purge stale anonymous carts", err, map[string]interface{}{
			"before": before,
		})
		return 0, err
	}
	return deleted, nil
}
