package holiday

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"phpayroll/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// List returns global holidays plus the organization's own, oldest first.
func (s *Store) List(ctx context.Context, orgID string, start, end time.Time) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(organization_id::text, ''), name, holiday_date, holiday_type
    FROM holidays
    WHERE (organization_id IS NULL OR organization_id = $1)
      AND holiday_date BETWEEN $2 AND $3
    ORDER BY holiday_date, name
  `, orgID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.OrgID, &h.Name, &h.Date, &h.Type); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, orgID string, h Holiday) (Holiday, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (organization_id, name, holiday_date, holiday_type)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, orgID, h.Name, h.Date, h.Type).Scan(&h.ID)
	if err != nil {
		return Holiday{}, err
	}
	h.OrgID = orgID
	return h, nil
}

func (s *Store) Get(ctx context.Context, orgID, id string) (Holiday, error) {
	var h Holiday
	err := s.DB.QueryRow(ctx, `
    SELECT id, COALESCE(organization_id::text, ''), name, holiday_date, holiday_type
    FROM holidays
    WHERE id = $1 AND (organization_id IS NULL OR organization_id = $2)
  `, id, orgID).Scan(&h.ID, &h.OrgID, &h.Name, &h.Date, &h.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return Holiday{}, ErrHolidayNotFound
	}
	return h, err
}

func (s *Store) Delete(ctx context.Context, orgID, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM holidays WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHolidayNotFound
	}
	return nil
}
