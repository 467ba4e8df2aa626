package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/weightlog/internal/db"
	"github.com/vbonduro/weightlog/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func sampleEntries() []domain.Entry {
	return []domain.Entry{
		{
			ID:                "a1",
			Date:              time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC),
			Weight:            80.0,
			BodyFatPercent:    20,
			MuscleMassPercent: 40,
			VisceralFat:       5,
			WeightUnit:        domain.Kilograms,
		},
		{
			ID:                "b2",
			Date:              time.Date(2024, 2, 28, 7, 0, 0, 0, time.UTC),
			Weight:            176.4,
			BodyFatPercent:    21.5,
			MuscleMassPercent: 39.25,
			VisceralFat:       6,
			WeightUnit:        domain.Pounds,
			ImagePath:         "b2.jpg",
		},
	}
}
