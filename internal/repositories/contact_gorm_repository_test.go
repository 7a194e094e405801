package repositories_test

import (
	"testing"
	"time"

	"contactbook/internal/apperr"
	"contactbook/internal/database/dbtest"
	"contactbook/internal/models"
	"contactbook/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createOwner(t *testing.T, db *gorm.DB, name string) uint64 {
	t.Helper()
	id, err := repositories.NewGORMAccountRepository(db).Create(&models.Account{Name: name, Password: "hash"})
	require.NoError(t, err)
	return id
}

func TestGORMContactRepository_CreateWithOnlyRequiredFields(t *testing.T) {
	pool := dbtest.Pool(t)

	onConn(t, pool, func(db *gorm.DB) {
		owner := createOwner(t, db, "alice")
		repo := repositories.NewGORMContactRepository(db)

		contact := models.NewContact(owner, models.ContactFields{FirstName: "Jane", LastName: "Doe"})
		require.NoError(t, repo.Create(contact))
		assert.NotZero(t, contact.ID)

		stored, err := repo.GetForOwner(owner, contact.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jane", stored.FirstName)
		assert.Empty(t, stored.Email)
		assert.Empty(t, stored.MobileNumber)
		assert.Empty(t, stored.LandlineNumber)
		assert.Empty(t, stored.Note)
	})
}

func TestGORMContactRepository_CreateForMissingOwner(t *testing.T) {
	pool := dbtest.Pool(t)

	onConn(t, pool, func(db *gorm.DB) {
		repo := repositories.NewGORMContactRepository(db)
		err := repo.Create(models.NewContact(999, models.ContactFields{FirstName: "Jane", LastName: "Doe"}))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestGORMContactRepository_ScopedToOwner(t *testing.T) {
	pool := dbtest.Pool(t)

	onConn(t, pool, func(db *gorm.DB) {
		alice := createOwner(t, db, "alice")
		mallory := createOwner(t, db, "mallory")
		repo := repositories.NewGORMContactRepository(db)

		contact := models.NewContact(alice, models.ContactFields{FirstName: "Jane", LastName: "Doe"})
		require.NoError(t, repo.Create(contact))

		_, err := repo.GetForOwner(mallory, contact.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		hijack := *contact
		hijack.OwnerID = mallory
		hijack.FirstName = "Pwned"
		_, err = repo.Update(&hijack)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		assert.ErrorIs(t, repo.Delete(mallory, contact.ID), apperr.ErrNotFound)

		list, err := repo.ListByOwner(mallory)
		require.NoError(t, err)
		assert.Empty(t, list)

		stored, err := repo.GetForOwner(alice, contact.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jane", stored.FirstName)
	})
}

func TestGORMContactRepository_UpdateListDelete(t *testing.T) {
	pool := dbtest.Pool(t)

	onConn(t, pool, func(db *gorm.DB) {
		owner := createOwner(t, db, "alice")
		repo := repositories.NewGORMContactRepository(db)

		first := models.NewContact(owner, models.ContactFields{FirstName: "Jane", LastName: "Doe"})
		second := models.NewContact(owner, models.ContactFields{FirstName: "John", LastName: "Roe"})
		require.NoError(t, repo.Create(first))
		require.NoError(t, repo.Create(second))

		merged := first.Merge(models.ContactFields{MiddleName: "Q", Email: "jane@example.com"})
		updated, err := repo.Update(&merged)
		require.NoError(t, err)
		assert.Equal(t, first.ID, updated.ID)
		assert.Equal(t, "Q", updated.MiddleName)
		assert.Equal(t, "jane@example.com", updated.Email)
		assert.Equal(t, "Doe", updated.LastName)

		list, err := repo.ListByOwner(owner)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		require.NoError(t, repo.Delete(owner, second.ID))
		_, err = repo.GetForOwner(owner, second.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestGORMContactRepository_AccountDeleteCascades(t *testing.T) {
	pool := dbtest.Pool(t)

	onConn(t, pool, func(db *gorm.DB) {
		owner := createOwner(t, db, "alice")
		repo := repositories.NewGORMContactRepository(db)
		require.NoError(t, repo.Create(models.NewContact(owner, models.ContactFields{FirstName: "Jane", LastName: "Doe"})))

		_, err := repositories.NewGORMAccountRepository(db).Delete(owner)
		require.NoError(t, err)

		list, err := repo.ListByOwner(owner)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestGORMContactRepository_Analytics(t *testing.T) {
	pool := dbtest.Pool(t)
	today := time.Date(2026, 5, 20, 15, 30, 0, 0, time.UTC)

	onConn(t, pool, func(db *gorm.DB) {
		owner := createOwner(t, db, "alice")
		contact := models.NewContact(owner, models.ContactFields{FirstName: "Jane", LastName: "Doe"})
		require.NoError(t, repositories.NewGORMContactRepository(db).Create(contact))

		viewAt := func(at time.Time) {
			repo := repositories.NewGORMContactRepository(db).WithClock(func() time.Time { return at })
			require.NoError(t, repo.RecordView(contact.ID))
		}

		// Outside the window.
		viewAt(today.AddDate(0, 0, -7))
		// Oldest day inside the window.
		viewAt(today.AddDate(0, 0, -6))
		viewAt(today.AddDate(0, 0, -2))
		viewAt(today.AddDate(0, 0, -2).Add(time.Hour))
		for i := 0; i < 3; i++ {
			viewAt(today.Add(-time.Duration(i) * time.Minute))
		}

		repo := repositories.NewGORMContactRepository(db).WithClock(func() time.Time { return today })
		analytics, err := repo.GetAnalytics(contact.ID)
		require.NoError(t, err)

		require.Len(t, analytics.DailySeries, 3)
		assert.Equal(t, "2026-05-14", analytics.DailySeries[0].Date.Format("2006-01-02"))
		assert.Equal(t, int64(1), analytics.DailySeries[0].Count)
		assert.Equal(t, "2026-05-18", analytics.DailySeries[1].Date.Format("2006-01-02"))
		assert.Equal(t, int64(2), analytics.DailySeries[1].Count)
		assert.Equal(t, "2026-05-20", analytics.DailySeries[2].Date.Format("2006-01-02"))
		assert.Equal(t, int64(3), analytics.DailySeries[2].Count)

		var sum int64
		for _, d := range analytics.DailySeries {
			sum += d.Count
		}
		assert.Equal(t, sum, analytics.Total)
		assert.Equal(t, int64(6), analytics.Total)
	})
}

func TestGORMContactRepository_AnalyticsWithoutViews(t *testing.T) {
	pool := dbtest.Pool(t)

	onConn(t, pool, func(db *gorm.DB) {
		analytics, err := repositories.NewGORMContactRepository(db).GetAnalytics(42)
		require.NoError(t, err)
		assert.Zero(t, analytics.Total)
		assert.NotNil(t, analytics.DailySeries)
		assert.Empty(t, analytics.DailySeries)
	})
}
