package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	WithTx(tx *gorm.DB) CustomerRepository
	FindByID(id uint) (*model.Customer, error)
	FindByUserID(userID uint) (*model.Customer, error)
	FindOrCreateByUserID(userID uint) (*model.Customer, error)
	FindWithOrders(id uint) (*model.Customer, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) WithTx(tx *gorm.DB) CustomerRepository {
	return &customerRepository{db: tx}
}

func (r *customerRepository) FindByID(id uint) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByUserID(userID uint) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.Where("user_id = ?", userID).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindOrCreateByUserID is safe against two first requests racing: the
// unique user_id index turns the loser's insert into a no-op.
func (r *customerRepository) FindOrCreateByUserID(userID uint) (*model.Customer, error) {
	customer := &model.Customer{UserID: userID}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(customer).Error
	if err != nil {
		logger.Error("Failed to create customer in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	found, err := r.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to load customer after upsert", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Customer resolved", map[string]interface{}{
		"user_id":     userID,
		"customer_id": found.ID,
	})
	return found, nil
}

func (r *customerRepository) FindWithOrders(id uint) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.Preload("Orders", func(db *gorm.DB) *gorm.DB {
		return db.Order("orders.created_at DESC")
	}).First(&customer, id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
