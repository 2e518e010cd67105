package loan

import (
	"context"
	"strings"
)

type StoreAPI interface {
	Create(ctx context.Context, orgID string, in NewLoan) (Loan, error)
	List(ctx context.Context, orgID string, activeOnly bool) ([]Loan, error)
	History(ctx context.Context, orgID, employeeID string) ([]Payment, error)
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, orgID string, in NewLoan) (Loan, error) {
	if !in.Amount.IsPositive() {
		return Loan{}, ErrInvalidAmount
	}
	if !in.MonthlyInstallment.IsPositive() || in.MonthlyInstallment.GreaterThan(in.Amount) {
		return Loan{}, ErrInvalidInstalment
	}
	in.Description = strings.TrimSpace(in.Description)
	return s.store.Create(ctx, orgID, in)
}

func (s *Service) List(ctx context.Context, orgID string, activeOnly bool) ([]Loan, error) {
	return s.store.List(ctx, orgID, activeOnly)
}

func (s *Service) History(ctx context.Context, orgID, employeeID string) ([]Payment, error) {
	return s.store.History(ctx, orgID, employeeID)
}
