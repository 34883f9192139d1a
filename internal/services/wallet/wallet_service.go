package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

func lockUser(tx *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
		return nil, errors.Wrapf(err, "load user %s", userID)
	}
	return &user, nil
}

// HasCredit reports whether a credit for referenceID was already booked to userID.
func (s *WalletService) HasCredit(tx *gorm.DB, userID, referenceID uuid.UUID) (bool, error) {
	var n int64
	err := tx.Model(&models.WalletTransaction{}).
		Where("user_id = ? AND reference_id = ? AND type = ?", userID, referenceID, models.WalletTrxCredit).
		Count(&n).Error
	return n > 0, err
}

// Credit adds amount to the user's balance and writes a ledger entry.
// This should be called within a DB transaction.
func (s *WalletService) Credit(tx *gorm.DB, userID uuid.UUID, amount float64, referenceID uuid.UUID, description string) (*models.WalletTransaction, error) {
	amount = utils.RoundMoney(amount)
	if amount <= 0 {
		return nil, errors.New("amount to credit must be greater than zero")
	}

	user, err := lockUser(tx, userID)
	if err != nil {
		return nil, err
	}
	after := utils.RoundMoney(user.Balance + amount)

	result := tx.Model(&models.User{}).Where("id = ?", userID).Update("balance", after)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("user not found for id %s", userID)
	}

	ledger := models.WalletTransaction{
		UserID:        userID,
		Amount:        amount,
		Type:          models.WalletTrxCredit,
		Description:   description,
		ReferenceID:   &referenceID,
		BalanceBefore: user.Balance,
		BalanceAfter:  after,
	}
	if err := tx.Create(&ledger).Error; err != nil {
		return nil, err
	}
	return &ledger, nil
}

// SetBalance overwrites the user's balance with a recomputed value. When the
// stored value was off, the difference is booked as an adjustment entry.
// This should be called within a DB transaction.
func (s *WalletService) SetBalance(tx *gorm.DB, userID uuid.UUID, balance float64, description string) (*models.WalletTransaction, error) {
	balance = utils.RoundMoney(balance)

	user, err := lockUser(tx, userID)
	if err != nil {
		return nil, err
	}
	delta := utils.RoundMoney(balance - user.Balance)
	if delta == 0 {
		return nil, nil
	}

	if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("balance", balance).Error; err != nil {
		return nil, err
	}

	ledger := models.WalletTransaction{
		UserID:        userID,
		Amount:        delta,
		Type:          models.WalletTrxAdjustment,
		Description:   description,
		BalanceBefore: user.Balance,
		BalanceAfter:  balance,
	}
	if err := tx.Create(&ledger).Error; err != nil {
		return nil, err
	}
	return &ledger, nil
}

// History lists the newest ledger entries for a user.
func (s *WalletService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.WalletTransaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
