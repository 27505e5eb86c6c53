package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainerrors "modelmart/contexts/finance-core/treasury-service/domain/errors"
	"modelmart/contexts/finance-core/treasury-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&balanceModel{})
}

func (r *Repository) Credit(ctx context.Context, kind ports.Kind, accountID string, amount uint64) error {
	row := balanceModel{
		AccountID: accountID,
		Kind:      string(kind),
		Amount:    amount,
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "kind"}},
			DoUpdates: clause.Assignments(map[string]any{
				"amount":     gorm.Expr("treasury_balances.amount + ?", amount),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&row).
		Error
}

// ApplyTransfer debits and credits inside one transaction. Rows are locked
// in account order so two opposing transfers cannot deadlock.
func (r *Repository) ApplyTransfer(ctx context.Context, kind ports.Kind, from string, to string, amount uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, second := from, to
		if second < first {
			first, second = second, first
		}
		for _, accountID := range []string{first, second} {
			var row balanceModel
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("account_id = ? AND kind = ?", accountID, string(kind)).
				First(&row).
				Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		var source balanceModel
		err := tx.Where("account_id = ? AND kind = ?", from, string(kind)).
			First(&source).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrInsufficientFunds
		}
		if err != nil {
			return err
		}
		if source.Amount < amount {
			return domainerrors.ErrInsufficientFunds
		}

		if err := tx.Model(&balanceModel{}).
			Where("account_id = ? AND kind = ?", from, string(kind)).
			Updates(map[string]any{
				"amount":     gorm.Expr("amount - ?", amount),
				"updated_at": time.Now().UTC(),
			}).
			Error; err != nil {
			return err
		}

		row := balanceModel{
			AccountID: to,
			Kind:      string(kind),
			Amount:    amount,
			UpdatedAt: time.Now().UTC(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "kind"}},
			DoUpdates: clause.Assignments(map[string]any{
				"amount":     gorm.Expr("treasury_balances.amount + ?", amount),
				"updated_at": time.Now().UTC(),
			}),
		}).
			Create(&row).
			Error
	})
}

func (r *Repository) Balance(ctx context.Context, kind ports.Kind, accountID string) (uint64, error) {
	var row balanceModel
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND kind = ?", accountID, string(kind)).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Amount, nil
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type balanceModel struct {
	AccountID string    `gorm:"column:account_id;primaryKey"`
	Kind      string    `gorm:"column:kind;primaryKey"`
	Amount    uint64    `gorm:"column:amount"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (balanceModel) TableName() string {
	return "treasury_balances"
}
