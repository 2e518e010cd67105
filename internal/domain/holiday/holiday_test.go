package holiday

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestInPeriodIsInclusive(t *testing.T) {
	holidays := []Holiday{
		{Name: "New Year", Date: date("2026-01-01"), Type: TypeRegular},
		{Name: "EDSA", Date: date("2026-02-25"), Type: TypeSpecial},
		{Name: "Araw ng Kagitingan", Date: date("2026-04-09"), Type: TypeRegular},
	}

	got := InPeriod(holidays, date("2026-01-01"), date("2026-02-25"))
	require.Len(t, got, 2)
	assert.Equal(t, "New Year", got[0].Name)
	assert.Equal(t, "EDSA", got[1].Name)
	assert.Equal(t, Summary{Regular: 1, Special: 1}, Summarize(got))
}

type fakeStore struct {
	holidays map[string]Holiday
	deleted  []string
}

func (f *fakeStore) List(context.Context, string, time.Time, time.Time) ([]Holiday, error) {
	return nil, nil
}

func (f *fakeStore) Create(_ context.Context, orgID string, h Holiday) (Holiday, error) {
	h.ID = "new"
	h.OrgID = orgID
	return h, nil
}

func (f *fakeStore) Get(_ context.Context, _ string, id string) (Holiday, error) {
	h, ok := f.holidays[id]
	if !ok {
		return Holiday{}, ErrHolidayNotFound
	}
	return h, nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestDeleteRejectsGlobalHoliday(t *testing.T) {
	store := &fakeStore{holidays: map[string]Holiday{
		"global": {ID: "global", Name: "Independence Day", Type: TypeRegular},
		"local":  {ID: "local", OrgID: "org-1", Name: "Town Fiesta", Type: TypeSpecial},
	}}
	svc := NewService(store)

	assert.ErrorIs(t, svc.Delete(context.Background(), "org-1", "global"), ErrGlobalHoliday)
	assert.NoError(t, svc.Delete(context.Background(), "org-1", "local"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "org-1", "missing"), ErrHolidayNotFound)
	assert.Equal(t, []string{"local"}, store.deleted)
}

func TestCreateValidatesType(t *testing.T) {
	svc := NewService(&fakeStore{})
	_, err := svc.Create(context.Background(), "org-1", "Founding Day", date("2026-06-01"), "Optional")
	assert.ErrorIs(t, err, ErrInvalidType)

	h, err := svc.Create(context.Background(), "org-1", " Founding Day ", date("2026-06-01"), TypeSpecial)
	require.NoError(t, err)
	assert.Equal(t, "Founding Day", h.Name)
	assert.Equal(t, "org-1", h.OrgID)
}
