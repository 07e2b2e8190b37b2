package expense

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	ExpenseService interface {
		// CommitJob writes the durable ledger entry for an accepted
		// extraction job. Callers pass the already-override-applied record.
		CommitJob(ctx context.Context, job *entities.ExtractionJob, record *domain.CandidateRecord, categoryID *uuid.UUID, notes string) (*entities.ExpenseRecord, error)

		// FindForJob returns the ledger entry an earlier accept created.
		FindForJob(ctx context.Context, jobID uuid.UUID) (*entities.ExpenseRecord, error)

		AddManualExpense(ctx context.Context, req domain.AddExpenseRequest, userID string) (domain.ExpenseResponse, error)
		GetExpenses(ctx context.Context, userID string, from, to time.Time) ([]domain.ExpenseResponse, error)
	}

	expenseService struct {
		expenseRepository ExpenseRepository
		amountTolerance   decimal.Decimal
	}
)

func NewExpenseService(expenseRepository ExpenseRepository, amountTolerance decimal.Decimal) ExpenseService {
	return &expenseService{
		expenseRepository: expenseRepository,
		amountTolerance:   amountTolerance,
	}
}

func (s *expenseService) CommitJob(ctx context.Context, job *entities.ExtractionJob, record *domain.CandidateRecord, categoryID *uuid.UUID, notes string) (*entities.ExpenseRecord, error) {
	total := decimal.Zero
	if record.TotalAmount.Value != nil {
		parsed, err := decimal.NewFromString(*record.TotalAmount.Value)
		if err == nil {
			total = parsed
		}
	}

	txDate := time.Now()
	if record.TransactionDate.Value != nil {
		if parsed, err := time.Parse("2006-01-02", *record.TransactionDate.Value); err == nil {
			txDate = parsed
		}
	}

	merchant := ""
	if record.MerchantName.Value != nil {
		merchant = *record.MerchantName.Value
	}
	payment := ""
	if record.PaymentMethod.Value != nil {
		payment = *record.PaymentMethod.Value
	}

	jobID := job.ID
	expense := &entities.ExpenseRecord{
		ID:              uuid.New(),
		UserID:          job.UserID,
		SourceJobID:     &jobID,
		MerchantName:    merchant,
		TotalAmount:     total,
		TransactionDate: txDate,
		CategoryID:      categoryID,
		PaymentMethod:   payment,
		Notes:           notes,
	}

	for _, item := range record.LineItems {
		expense.Items = append(expense.Items, &entities.ExpenseItem{
			ID:         uuid.New(),
			ExpenseID:  expense.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}

	expense.AmountMismatch = s.itemSumMismatch(total, expense.Items)

	if err := s.expenseRepository.Create(ctx, expense); err != nil {
		// the unique index on source_job_id rejects a second commit for the
		// same job; a concurrent accept already wrote the row, return it
		if existing, findErr := s.FindForJob(ctx, jobID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) FindForJob(ctx context.Context, jobID uuid.UUID) (*entities.ExpenseRecord, error) {
	record, err := s.expenseRepository.GetBySourceJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrExpenseNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *expenseService) AddManualExpense(ctx context.Context, req domain.AddExpenseRequest, userID string) (domain.ExpenseResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.ExpenseResponse{}, domain.ErrParseUUID
	}

	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil || !total.IsPositive() {
		return domain.ExpenseResponse{}, domain.ErrAmountRequired
	}

	txDate, err := time.Parse("2006-01-02", req.TransactionDate)
	if err != nil {
		return domain.ExpenseResponse{}, domain.ErrValidation
	}

	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		parsed, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return domain.ExpenseResponse{}, domain.ErrParseUUID
		}
		categoryID = &parsed
	}

	expense := &entities.ExpenseRecord{
		ID:              uuid.New(),
		UserID:          userUUID,
		MerchantName:    req.MerchantName,
		TotalAmount:     total,
		TransactionDate: txDate,
		CategoryID:      categoryID,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		IsManualEntry:   true,
	}

	for _, item := range req.Items {
		itemTotal, err := decimal.NewFromString(item.TotalPrice)
		if err != nil {
			return domain.ExpenseResponse{}, domain.ErrValidation
		}
		quantity := decimal.NewFromInt(1)
		if item.Quantity != "" {
			if quantity, err = decimal.NewFromString(item.Quantity); err != nil {
				return domain.ExpenseResponse{}, domain.ErrValidation
			}
		}
		unitPrice := itemTotal
		if item.UnitPrice != "" {
			if unitPrice, err = decimal.NewFromString(item.UnitPrice); err != nil {
				return domain.ExpenseResponse{}, domain.ErrValidation
			}
		}
		var itemCategory *uuid.UUID
		if item.CategoryID != "" {
			parsed, err := uuid.Parse(item.CategoryID)
			if err != nil {
				return domain.ExpenseResponse{}, domain.ErrParseUUID
			}
			itemCategory = &parsed
		}

		expense.Items = append(expense.Items, &entities.ExpenseItem{
			ID:         uuid.New(),
			ExpenseID:  expense.ID,
			Name:       item.Name,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalPrice: itemTotal,
			CategoryID: itemCategory,
		})
	}

	expense.AmountMismatch = s.itemSumMismatch(total, expense.Items)

	if err := s.expenseRepository.Create(ctx, expense); err != nil {
		return domain.ExpenseResponse{}, err
	}
	return toExpenseResponse(expense), nil
}

func (s *expenseService) GetExpenses(ctx context.Context, userID string, from, to time.Time) ([]domain.ExpenseResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	records, err := s.expenseRepository.List(ctx, userUUID, from, to)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.ExpenseResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, toExpenseResponse(record))
	}
	return responses, nil
}

// itemSumMismatch flags (never rejects) records whose line items do not add
// up to the total within the tolerance; tax, tip and discounts commonly
// explain the delta.
func (s *expenseService) itemSumMismatch(total decimal.Decimal, items []*entities.ExpenseItem) bool {
	if len(items) == 0 {
		return false
	}
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.TotalPrice)
	}
	return total.Sub(sum).Abs().GreaterThan(s.amountTolerance)
}

func toExpenseResponse(record *entities.ExpenseRecord) domain.ExpenseResponse {
	resp := domain.ExpenseResponse{
		ID:              record.ID.String(),
		MerchantName:    record.MerchantName,
		TotalAmount:     record.TotalAmount,
		TransactionDate: record.TransactionDate,
		PaymentMethod:   record.PaymentMethod,
		Notes:           record.Notes,
		AmountMismatch:  record.AmountMismatch,
		IsManualEntry:   record.IsManualEntry,
		CreatedAt:       record.CreatedAt,
	}
	if record.SourceJobID != nil {
		resp.SourceJobID = record.SourceJobID.String()
	}
	if record.CategoryID != nil {
		resp.CategoryID = record.CategoryID.String()
	}
	for _, item := range record.Items {
		itemResp := domain.ExpenseItemResponse{
			ID:         item.ID.String(),
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		}
		if item.CategoryID != nil {
			itemResp.CategoryID = item.CategoryID.String()
		}
		resp.Items = append(resp.Items, itemResp)
	}
	return resp
}
