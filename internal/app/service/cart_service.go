package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartService interface {
	GetCart(ctx context.Context, cc CartContext) (*model.Cart, error)
	AddItem(ctx context.Context, cc CartContext, productID uint) (*model.Cart, error)
	RemoveItem(ctx context.Context, cc CartContext, productID uint) (*model.Cart, error)
	ChangeQuantity(ctx context.Context, cc CartContext, productID uint, rawQty string) (*model.Cart, error)
	ClearCart(ctx context.Context, cc CartContext) (*model.Cart, error)
	Recalculate(ctx context.Context, cartID uint) (*model.Cart, error)
}

type cartService struct {
	db          *gorm.DB
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// cartMutation changes the items of a locked, open cart.
type cartMutation func(tx *gorm.DB, carts repository.CartRepository, cart *model.Cart) error

// mutate runs fn and the totals recalculation in one transaction holding the
// cart row lock, so no reader can observe items and totals out of step.
func (s *cartService) mutate(ctx context.Context, cartID uint, fn cartMutation) (*model.Cart, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)

		cart, err := carts.FindByIDForUpdate(cartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}
		if cart.InOrder {
			return ErrCartClosed
		}

		if err := fn(tx, carts, cart); err != nil {
			return err
		}
		return recalculate(carts, cart)
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, cartID)
}

// recalculate sets the derived totals from the current items and bumps the version.
func recalculate(carts repository.CartRepository, cart *model.Cart) error {
	items, err := carts.ListItems(cart.ID)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}

	cart.TotalItemCount = len(items)
	cart.TotalPrice = total
	cart.Version++
	return carts.SaveTotals(cart)
}

func (s *cartService) load(ctx context.Context, cartID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.WithTx(s.db.WithContext(ctx)).FindWithItems(cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return cart, nil
}

func (s *cartService) GetCart(ctx context.Context, cc CartContext) (*model.Cart, error) {
	return s.load(ctx, cc.CartID)
}

func (s *cartService) AddItem(ctx context.Context, cc CartContext, productID uint) (*model.Cart, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"cart_id":    cc.CartID,
		"product_id": productID,
	})

	cart, err := s.mutate(ctx, cc.CartID, func(tx *gorm.DB, carts repository.CartRepository, cart *model.Cart) error {
		product, err := s.productRepo.WithTx(tx).FindByID(productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		item, err := carts.FindItem(cart.ID, productID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = &model.CartItem{
				CartID:     cart.ID,
				CustomerID: cc.CustomerID,
				ProductID:  productID,
				Quantity:   1,
			}
		case err != nil:
			return err
		default:
			item.Quantity++
		}
		item.Product = *product
		return carts.SaveItem(item)
	})
	if err != nil {
		logger.Warn("Failed to add item to cart", map[string]interface{}{
			"cart_id":    cc.CartID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, err
	}

	logger.Info("Cart item added successfully", map[string]interface{}{
		"cart_id":          cart.ID,
		"total_item_count": cart.TotalItemCount,
		"total_price":      cart.TotalPrice.StringFixed(2),
	})
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, cc CartContext, productID uint) (*model.Cart, error) {
	logger.Info("Removing item from cart", map[string]interface{}{
		"cart_id":    cc.CartID,
		"product_id": productID,
	})

	cart, err := s.mutate(ctx, cc.CartID, func(tx *gorm.DB, carts repository.CartRepository, cart *model.Cart) error {
		item, err := carts.FindItem(cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartItemNotFound
			}
			return err
		}
		return carts.DeleteItem(item)
	})
	if err != nil {
		logger.Warn("Failed to remove item from cart", map[string]interface{}{
			"cart_id":    cc.CartID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, err
	}
	return cart, nil
}

// ParseQuantity accepts only a positive integer, surrounding spaces allowed.
func ParseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, newValidationError("quantity", "must be a whole number")
	}
	if qty <= 0 {
		return 0, newValidationError("quantity", "must be greater than zero")
	}
	return qty, nil
}

func (s *cartService) ChangeQuantity(ctx context.Context, cc CartContext, productID uint, rawQty string) (*model.Cart, error) {
	qty, err := ParseQuantity(rawQty)
	if err != nil {
		logger.Warn("Rejected cart quantity", map[string]interface{}{
			"cart_id":    cc.CartID,
			"product_id": productID,
			"raw_qty":    rawQty,
		})
		return nil, err
	}

	return s.mutate(ctx, cc.CartID, func(tx *gorm.DB, carts repository.CartRepository, cart *model.Cart) error {
		item, err := carts.FindItem(cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartItemNotFound
			}
			return err
		}
		item.Quantity = qty
		return carts.SaveItem(item)
	})
}

func (s *cartService) ClearCart(ctx context.Context, cc CartContext) (*model.Cart, error) {
	logger.Info("Clearing cart", map[string]interface{}{
		"cart_id": cc.CartID,
	})

	return s.mutate(ctx, cc.CartID, func(tx *gorm.DB, carts repository.CartRepository, cart *model.Cart) error {
		return carts.DeleteItems(cart.ID)
	})
}

// Recalculate re-prices every line from the current product price and
// rewrites the totals. Closed carts keep their checkout prices.
func (s *cartService) Recalculate(ctx context.Context, cartID uint) (*model.Cart, error) {
	return s.mutate(ctx, cartID, func(tx *gorm.DB, carts repository.CartRepository, cart *model.Cart) error {
		loaded, err := carts.FindWithItems(cart.ID)
		if err != nil {
			return err
		}
		for i := range loaded.Items {
			item := &loaded.Items[i]
			expected := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			if expected.Equal(item.LineTotal) {
				continue
			}
			logger.Warn("Repairing cart line total", map[string]interface{}{
				"cart_id":      cart.ID,
				"cart_item_id": item.ID,
				"stored":       item.LineTotal.StringFixed(2),
				"expected":     expected.StringFixed(2),
			})
			if err := carts.SaveItem(item); err != nil {
				return err
			}
		}
		return nil
	})
}
