package expense

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeExpenseRepository struct {
	records []*entities.ExpenseRecord
}

func (f *fakeExpenseRepository) Create(ctx context.Context, record *entities.ExpenseRecord) error {
	// same uniqueness the source_job_id index enforces
	for _, r := range f.records {
		if r.SourceJobID != nil && record.SourceJobID != nil && *r.SourceJobID == *record.SourceJobID {
			return gorm.ErrDuplicatedKey
		}
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ExpenseRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeExpenseRepository) GetBySourceJobID(ctx context.Context, jobID uuid.UUID) (*entities.ExpenseRecord, error) {
	for _, r := range f.records {
		if r.SourceJobID != nil && *r.SourceJobID == jobID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeExpenseRepository) List(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.ExpenseRecord, error) {
	return f.records, nil
}

func (f *fakeExpenseRepository) SumForPeriod(ctx context.Context, userID uuid.UUID, categoryID *uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, r := range f.records {
		sum = sum.Add(r.TotalAmount)
	}
	return sum, nil
}

func newService(repo *fakeExpenseRepository) ExpenseService {
	return NewExpenseService(repo, decimal.RequireFromString("1.00"))
}

func strPtr(s string) *string { return &s }

func candidateRecord(total string, items ...domain.LineItemCandidate) *domain.CandidateRecord {
	return &domain.CandidateRecord{
		SchemaVersion:   domain.FieldsSchemaVersion,
		MerchantName:    domain.FieldValue{Value: strPtr("Walmart"), Confidence: 0.9},
		TransactionDate: domain.FieldValue{Value: strPtr("2026-08-10"), Confidence: 0.9},
		TotalAmount:     domain.FieldValue{Value: strPtr(total), Confidence: 0.9},
		LineItems:       items,
	}
}

func TestCommitJobWithinTolerance(t *testing.T) {
	repo := &fakeExpenseRepository{}
	svc := newService(repo)
	job := &entities.ExtractionJob{ID: uuid.New(), UserID: uuid.New()}

	// items sum to 14.99, total is 15.99: the 1.00 delta is within tolerance
	record := candidateRecord("15.99",
		domain.LineItemCandidate{Name: "Milk", Quantity: decimal.NewFromInt(1), TotalPrice: decimal.RequireFromString("3.49")},
		domain.LineItemCandidate{Name: "Bread", Quantity: decimal.NewFromInt(1), TotalPrice: decimal.RequireFromString("11.50")},
	)

	committed, err := svc.CommitJob(context.Background(), job, record, nil, "")
	if err != nil {
		t.Fatalf("CommitJob: %v", err)
	}
	if committed.AmountMismatch {
		t.Error("delta within tolerance should not flag a mismatch")
	}
	if !committed.TotalAmount.Equal(decimal.RequireFromString("15.99")) {
		t.Errorf("total = %s, want 15.99", committed.TotalAmount)
	}
	if committed.SourceJobID == nil || *committed.SourceJobID != job.ID {
		t.Error("committed record must reference its source job")
	}
	if committed.TransactionDate.Format("2006-01-02") != "2026-08-10" {
		t.Errorf("transaction date = %v, want 2026-08-10", committed.TransactionDate)
	}
}

func TestCommitJobFlagsMismatch(t *testing.T) {
	repo := &fakeExpenseRepository{}
	svc := newService(repo)
	job := &entities.ExtractionJob{ID: uuid.New(), UserID: uuid.New()}

	record := candidateRecord("30.00",
		domain.LineItemCandidate{Name: "Milk", Quantity: decimal.NewFromInt(1), TotalPrice: decimal.RequireFromString("3.49")},
		domain.LineItemCandidate{Name: "Bread", Quantity: decimal.NewFromInt(1), TotalPrice: decimal.RequireFromString("11.50")},
	)

	committed, err := svc.CommitJob(context.Background(), job, record, nil, "")
	if err != nil {
		t.Fatalf("CommitJob: %v", err)
	}
	if !committed.AmountMismatch {
		t.Error("a 15.01 delta must flag a mismatch")
	}
}

func TestCommitJobNoItemsNoMismatch(t *testing.T) {
	repo := &fakeExpenseRepository{}
	svc := newService(repo)
	job := &entities.ExtractionJob{ID: uuid.New(), UserID: uuid.New()}

	committed, err := svc.CommitJob(context.Background(), job, candidateRecord("42.00"), nil, "")
	if err != nil {
		t.Fatalf("CommitJob: %v", err)
	}
	if committed.AmountMismatch {
		t.Error("a record without line items can never mismatch")
	}
}

func TestCommitJobTwiceReturnsExistingRecord(t *testing.T) {
	repo := &fakeExpenseRepository{}
	svc := newService(repo)
	job := &entities.ExtractionJob{ID: uuid.New(), UserID: uuid.New()}

	first, err := svc.CommitJob(context.Background(), job, candidateRecord("15.99"), nil, "")
	if err != nil {
		t.Fatalf("first CommitJob: %v", err)
	}
	second, err := svc.CommitJob(context.Background(), job, candidateRecord("15.99"), nil, "")
	if err != nil {
		t.Fatalf("second CommitJob: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("second commit created a new record %s, want existing %s", second.ID, first.ID)
	}
	if len(repo.records) != 1 {
		t.Errorf("ledger rows = %d, want exactly 1", len(repo.records))
	}
}

func TestFindForJobNotFound(t *testing.T) {
	svc := newService(&fakeExpenseRepository{})

	_, err := svc.FindForJob(context.Background(), uuid.New())
	if err != domain.ErrExpenseNotFound {
		t.Errorf("got %v, want ErrExpenseNotFound", err)
	}
}

func TestAddManualExpense(t *testing.T) {
	repo := &fakeExpenseRepository{}
	svc := newService(repo)
	userID := uuid.New()

	res, err := svc.AddManualExpense(context.Background(), domain.AddExpenseRequest{
		MerchantName:    "Corner Cafe",
		TotalAmount:     "12.50",
		TransactionDate: "2026-08-15",
		Items: []domain.ExpenseItemRequest{
			{Name: "Latte", Quantity: "2", UnitPrice: "4.00", TotalPrice: "8.00"},
			{Name: "Croissant", TotalPrice: "4.50"},
		},
	}, userID.String())
	if err != nil {
		t.Fatalf("AddManualExpense: %v", err)
	}

	if !res.IsManualEntry {
		t.Error("manual entries must be marked as such")
	}
	if res.AmountMismatch {
		t.Error("items sum exactly to the total, no mismatch expected")
	}
	if len(res.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(res.Items))
	}
	if !res.Items[1].Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("quantity defaults to 1, got %s", res.Items[1].Quantity)
	}
}

func TestAddManualExpenseRejectsNonPositiveAmount(t *testing.T) {
	svc := newService(&fakeExpenseRepository{})

	for _, amount := range []string{"0", "-5.00", "not a number"} {
		_, err := svc.AddManualExpense(context.Background(), domain.AddExpenseRequest{
			MerchantName:    "X",
			TotalAmount:     amount,
			TransactionDate: "2026-08-15",
		}, uuid.New().String())
		if err != domain.ErrAmountRequired {
			t.Errorf("amount %q: got %v, want ErrAmountRequired", amount, err)
		}
	}
}
