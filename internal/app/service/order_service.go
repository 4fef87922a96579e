package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/receipt"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	orderDateLayout  = "2006-01-02"
	maxCommentLength = 1000
)

// OrderForm is the checkout form as submitted by the customer.
type OrderForm struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	BuyingType string `json:"buying_type"`
	OrderDate  string `json:"order_date"`
	Comment    string `json:"comment"`
}

// OrderNotifier pushes order updates to the customer's live connections.
type OrderNotifier interface {
	NotifyOrderStatus(userID uint, order *model.Order)
}

type OrderService interface {
	CreateOrder(ctx context.Context, cc CartContext, form OrderForm) (*model.Order, error)
	ListCustomerOrders(ctx context.Context, userID uint) ([]model.Order, error)
	GetOrder(ctx context.Context, actor Actor, orderID uint) (*model.Order, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uint, status string) (*model.Order, error)
	Receipt(ctx context.Context, actor Actor, orderID uint) ([]byte, string, error)
}

type orderService struct {
	db           *gorm.DB
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	customerRepo repository.CustomerRepository
	notifier     OrderNotifier
	signer       *receipt.Signer
	now          func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	customerRepo repository.CustomerRepository,
	notifier OrderNotifier,
	signer *receipt.Signer,
) OrderService {
	return &orderService{
		db:           db,
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		customerRepo: customerRepo,
		notifier:     notifier,
		signer:       signer,
		now:          time.Now,
	}
}

type validatedOrderForm struct {
	OrderForm
	buyingType model.BuyingType
	orderDate  time.Time
}

// validate reports every bad field at once.
func (f OrderForm) validate(today time.Time) (*validatedOrderForm, error) {
	fields := fieldErrors{}
	out := &validatedOrderForm{OrderForm: OrderForm{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Phone:     strings.TrimSpace(f.Phone),
		Address:   strings.TrimSpace(f.Address),
		Comment:   strings.TrimSpace(f.Comment),
	}}

	if out.FirstName == "" {
		fields.add("first_name", "This field is required")
	}
	if out.LastName == "" {
		fields.add("last_name", "This field is required")
	}
	if out.Phone == "" {
		fields.add("phone", "This field is required")
	}
	if out.Address == "" {
		fields.add("address", "This field is required")
	}

	out.buyingType = model.BuyingTypeSelf
	if f.BuyingType != "" {
		out.buyingType = model.BuyingType(f.BuyingType)
		if !out.buyingType.Valid() {
			fields.add("buying_type", "Must be one of: self, delivery")
		}
	}
	out.OrderForm.BuyingType = string(out.buyingType)

	if f.OrderDate == "" {
		fields.add("order_date", "This field is required")
	} else if date, err := time.ParseInLocation(orderDateLayout, f.OrderDate, today.Location()); err != nil {
		fields.add("order_date", "Use the YYYY-MM-DD format")
	} else {
		midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
		if date.Before(midnight) {
			fields.add("order_date", "Date cannot be in the past")
		}
		out.orderDate = date
	}

	if utf8.RuneCountInString(out.Comment) > maxCommentLength {
		fields.add("comment", "Ensure this field has no more than 1000 characters")
	}

	if err := fields.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cc CartContext, form OrderForm) (*model.Order, error) {
	if cc.IsAnonymous() {
		logger.Warn("Order rejected: anonymous cart", map[string]interface{}{
			"cart_id": cc.CartID,
		})
		return nil, ErrCustomerRequired
	}
	customerID := *cc.CustomerID

	valid, err := form.validate(s.now())
	if err != nil {
		return nil, err
	}

	logger.Info("Creating order from cart", map[string]interface{}{
		"customer_id": customerID,
		"cart_id":     cc.CartID,
		"buying_type": valid.buyingType,
	})

	var order *model.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.cartRepo.WithTx(tx)

		cart, err := carts.FindByIDForUpdate(cc.CartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}
		if cart.OwnerID == nil || *cart.OwnerID != customerID {
			return ErrCartNotFound
		}
		if cart.InOrder {
			return ErrCartClosed
		}

		items, err := carts.ListItems(cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		order = &model.Order{
			CustomerID: customerID,
			CartID:     cart.ID,
			FirstName:  valid.FirstName,
			LastName:   valid.LastName,
			Phone:      valid.Phone,
			Address:    valid.Address,
			BuyingType: valid.buyingType,
			OrderDate:  valid.orderDate,
			Comment:    valid.Comment,
			Status:     model.OrderStatusNew,
			TotalPrice: cart.TotalPrice,
		}
		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			return err
		}
		return carts.MarkInOrder(cart.ID)
	})
	if err != nil {
		logger.Warn("Failed to create order", map[string]interface{}{
			"customer_id": customerID,
			"cart_id":     cc.CartID,
			"error":       err.Error(),
		})
		return nil, err
	}

	logger.Info("Order created successfully", map[string]interface{}{
		"order_id":    order.ID,
		"customer_id": customerID,
		"total_price": order.TotalPrice.StringFixed(2),
	})
	return s.orderRepo.WithTx(s.db.WithContext(ctx)).FindByID(order.ID)
}

func (s *orderService) ListCustomerOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	db := s.db.WithContext(ctx)
	customer, err := s.customerRepo.WithTx(db).FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []model.Order{}, nil
		}
		return nil, err
	}
	return s.orderRepo.WithTx(db).FindByCustomerID(customer.ID)
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.WithTx(s.db.WithContext(ctx)).FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !actor.IsStaff() && (order.Customer == nil || order.Customer.UserID != actor.UserID) {
		// Someone else's order looks the same as a missing one.
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus moves an order forward and notifies its customer. Staff only.
func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, orderID uint, status string) (*model.Order, error) {
	if !actor.IsStaff() {
		return nil, ErrPermissionDenied
	}
	next := model.OrderStatus(status)
	if !next.Valid() {
		return nil, newValidationError("status", "Must be one of: new, in_progress, is_ready, completed")
	}

	db := s.db.WithContext(ctx)
	order, err := s.orderRepo.WithTx(db).FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		logger.Warn("Rejected order status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       next,
		})
		return nil, ErrInvalidStatusTransition
	}

	if err := s.orderRepo.WithTx(db).UpdateStatus(orderID, order.Status, next); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order status changed concurrently", map[string]interface{}{
				"order_id": orderID,
				"from":     order.Status,
				"to":       next,
			})
			return nil, ErrInvalidStatusTransition
		}
		return nil, err
	}
	order.Status = next

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"status":   next,
		"staff_id": actor.UserID,
	})

	if s.notifier != nil && order.Customer != nil {
		s.notifier.NotifyOrderStatus(order.Customer.UserID, order)
	}
	return order, nil
}

// Receipt renders the order as PDF and returns it with its reference.
func (s *orderService) Receipt(ctx context.Context, actor Actor, orderID uint) ([]byte, string, error) {
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, "", err
	}

	r := receipt.Receipt{
		OrderID:    order.ID,
		CreatedAt:  order.CreatedAt,
		OrderDate:  order.OrderDate,
		Customer:   strings.TrimSpace(order.FirstName + " " + order.LastName),
		Phone:      order.Phone,
		Address:    order.Address,
		BuyingType: string(order.BuyingType),
		Status:     string(order.Status),
		Comment:    order.Comment,
		Total:      order.TotalPrice,
	}
	if order.Cart != nil {
		for _, item := range order.Cart.Items {
			r.Lines = append(r.Lines, receipt.Line{
				Title:     item.Product.Title,
				Quantity:  item.Quantity,
				UnitPrice: item.LineTotal.Div(decimal.NewFromInt(int64(item.Quantity))),
				LineTotal: item.LineTotal,
			})
		}
	}

	pdf, err := s.signer.Render(r)
	if err != nil {
		logger.Error("Failed to render receipt", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, "", err
	}
	return pdf, receipt.Reference(order.ID, order.CreatedAt), nil
}
