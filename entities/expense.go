package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ExpenseRecord struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID          uuid.UUID       `gorm:"index" json:"user_id"`
	SourceJobID     *uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"source_job_id,omitempty"`
	MerchantName    string          `json:"merchant_name"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(10,2)" json:"total_amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	CategoryID      *uuid.UUID      `gorm:"type:uuid" json:"category_id,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	AmountMismatch  bool            `json:"amount_mismatch"`
	IsManualEntry   bool            `json:"is_manual_entry"`

	User     *User          `gorm:"foreignKey:UserID" json:"-"`
	Category *Category      `gorm:"foreignKey:CategoryID" json:"-"`
	Items    []*ExpenseItem `gorm:"foreignKey:ExpenseID" json:"items,omitempty"`
	Timestamp
}

type ExpenseItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	ExpenseID  uuid.UUID       `gorm:"type:uuid;index" json:"expense_id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `gorm:"type:numeric(10,2)" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(10,2)" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(10,2)" json:"total_price"`
	CategoryID *uuid.UUID      `gorm:"type:uuid" json:"category_id,omitempty"`

	Timestamp
}
