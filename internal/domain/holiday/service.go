package holiday

import (
	"context"
	"strings"
	"time"
)

type StoreAPI interface {
	List(ctx context.Context, orgID string, start, end time.Time) ([]Holiday, error)
	Create(ctx context.Context, orgID string, h Holiday) (Holiday, error)
	Get(ctx context.Context, orgID, id string) (Holiday, error)
	Delete(ctx context.Context, orgID, id string) error
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, orgID string, start, end time.Time) ([]Holiday, error) {
	return s.store.List(ctx, orgID, start, end)
}

func (s *Service) Create(ctx context.Context, orgID, name string, date time.Time, holidayType string) (Holiday, error) {
	if !ValidType(holidayType) {
		return Holiday{}, ErrInvalidType
	}
	return s.store.Create(ctx, orgID, Holiday{Name: strings.TrimSpace(name), Date: date, Type: holidayType})
}

// Delete removes an organization holiday. Nationwide entries are read-only.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	h, err := s.store.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if h.Global() {
		return ErrGlobalHoliday
	}
	return s.store.Delete(ctx, orgID, id)
}
