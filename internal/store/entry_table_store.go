package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/weightlog/internal/domain"
)

// EntryTableStore keeps one row per entry. Saves still replace the whole
// collection, inside a single transaction.
type EntryTableStore struct {
	db *sql.DB
}

func NewEntryTableStore(db *sql.DB) *EntryTableStore {
	return &EntryTableStore{db: db}
}

func (s *EntryTableStore) Load(ctx context.Context) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, weight, body_fat_percent, muscle_mass_percent, visceral_fat, weight_unit, image_path
		FROM entries ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var entries []domain.Entry
	for rows.Next() {
		var (
			e    domain.Entry
			date string
			unit string
		)
		if err := rows.Scan(&e.ID, &date, &e.Weight, &e.BodyFatPercent, &e.MuscleMassPercent, &e.VisceralFat, &unit, &e.ImagePath); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Date, err = time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %s has date %q", domain.ErrCorruptData, e.ID, date)
		}
		e.WeightUnit = domain.WeightUnit(unit)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

func (s *EntryTableStore) Save(ctx context.Context, entries []domain.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (id, position, date, weight, body_fat_percent, muscle_mass_percent, visceral_fat, weight_unit, image_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.ID, i, e.Date.Format(time.RFC3339Nano), e.Weight, e.BodyFatPercent,
			e.MuscleMassPercent, e.VisceralFat, string(e.WeightUnit), e.ImagePath,
		); err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entries: %w", err)
	}
	return nil
}
