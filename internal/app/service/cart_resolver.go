package service

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

// CartContext identifies the open cart a request operates on. It is resolved
// once per request and handed to every cart and order operation.
type CartContext struct {
	CartID       uint
	CustomerID   *uint
	SessionToken string
}

func (c CartContext) IsAnonymous() bool {
	return c.CustomerID == nil
}

type CartResolver interface {
	ResolveForUser(ctx context.Context, userID uint) (CartContext, error)
	ResolveForSession(ctx context.Context, token string) (CartContext, error)
}

type cartResolver struct {
	db           *gorm.DB
	customerRepo repository.CustomerRepository
	cartRepo     repository.CartRepository
}

func NewCartResolver(
	db *gorm.DB,
	customerRepo repository.CustomerRepository,
	cartRepo repository.CartRepository,
) CartResolver {
	return &cartResolver{
		db:           db,
		customerRepo: customerRepo,
		cartRepo:     cartRepo,
	}
}

// ResolveForUser returns the account's single open cart, creating the
// customer profile and the cart on first use.
func (r *cartResolver) ResolveForUser(ctx context.Context, userID uint) (CartContext, error) {
	db := r.db.WithContext(ctx)

	customer, err := r.customerRepo.WithTx(db).FindOrCreateByUserID(userID)
	if err != nil {
		return CartContext{}, err
	}

	carts := r.cartRepo.WithTx(db)
	cart, err := carts.FindOpenByOwner(customer.ID)
	if err == nil {
		return CartContext{CartID: cart.ID, CustomerID: &customer.ID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return CartContext{}, err
	}

	cart = &model.Cart{OwnerID: &customer.ID}
	if createErr := carts.Create(cart); createErr != nil {
		// A concurrent request may have created it; the open-owner index allows one.
		existing, findErr := carts.FindOpenByOwner(customer.ID)
		if findErr != nil {
			return CartContext{}, createErr
		}
		cart = existing
	} else {
		logger.Info("Created cart for customer", map[string]interface{}{
			"customer_id": customer.ID,
			"cart_id":     cart.ID,
		})
	}

	return CartContext{CartID: cart.ID, CustomerID: &customer.ID}, nil
}

// ResolveForSession returns the cart bound to token. A missing or malformed
// token is replaced by a fresh one, which the caller must hand back to the client.
func (r *cartResolver) ResolveForSession(ctx context.Context, token string) (CartContext, error) {
	if !util.IsValidSessionToken(token) {
		token = util.NewSessionToken()
		logger.Debug("Issued new cart session token", nil)
	}

	cart, err := r.cartRepo.WithTx(r.db.WithContext(ctx)).FindOrCreateBySessionToken(token)
	if err != nil {
		return CartContext{}, err
	}
	return CartContext{CartID: cart.ID, SessionToken: token}, nil
}
