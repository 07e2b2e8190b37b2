package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Budget struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID     uuid.UUID       `gorm:"index" json:"user_id"`
	CategoryID *uuid.UUID      `gorm:"type:uuid" json:"category_id,omitempty"` // nil means overall budget
	Name       string          `json:"name"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2)" json:"amount"`
	Period     string          `json:"period"` // "monthly", "quarterly", "yearly"
	StartDate  time.Time       `json:"start_date"`
	EndDate    *time.Time      `json:"end_date,omitempty"` // nil for recurring budgets

	User     *User     `gorm:"foreignKey:UserID" json:"-"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"-"`
	Timestamp
}

// BudgetAlert remembers the highest threshold already notified for one
// budget in one period, so a crossing alerts exactly once per period.
type BudgetAlert struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	BudgetID      uuid.UUID `gorm:"type:uuid;index:idx_budget_period,unique" json:"budget_id"`
	PeriodKey     string    `gorm:"index:idx_budget_period,unique" json:"period_key"`
	LastThreshold int       `json:"last_threshold"`

	Timestamp
}
