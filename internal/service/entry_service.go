package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/weightlog/internal/domain"
	"github.com/vbonduro/weightlog/internal/imaging"
	"github.com/vbonduro/weightlog/internal/photostore"
)

// entryRepository is the persistence contract shared by store.EntryBlobStore
// and store.EntryTableStore. Save always receives the whole collection.
type entryRepository interface {
	Load(ctx context.Context) ([]domain.Entry, error)
	Save(ctx context.Context, entries []domain.Entry) error
}

// EntryService is the entry store: it exclusively owns the in-memory entry
// collection, mirrors it to the repository after every mutation and manages
// the photo files that belong to entries.
type EntryService struct {
	mu      sync.RWMutex
	entries []domain.Entry

	repo        entryRepository
	photoStg    photostore.PhotoStore
	loc         *time.Location
	jpegQuality int
	logger      *slog.Logger
}

func NewEntryService(
	repo entryRepository,
	photoStg photostore.PhotoStore,
	loc *time.Location,
	jpegQuality int,
	logger *slog.Logger,
) *EntryService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EntryService{
		repo:        repo,
		photoStg:    photoStg,
		loc:         loc,
		jpegQuality: jpegQuality,
		logger:      logger,
	}
}

// Location is the time zone calendar days are evaluated in.
func (s *EntryService) Location() *time.Location {
	return s.loc
}

// Load replaces the in-memory collection with the persisted one. Undecodable
// data leaves the store empty and returns an error wrapping
// domain.ErrCorruptData so the caller can decide whether to carry on.
func (s *EntryService) Load(ctx context.Context) error {
	entries, err := s.repo.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.entries = nil
		return fmt.Errorf("failed to load entries: %w", err)
	}
	s.entries = entries
	s.logger.Info("entries loaded", "count", len(entries))
	return nil
}

// Add appends entry, storing photo alongside it when given, and persists the
// collection. A missing ID is assigned. Same-day duplicates are allowed.
func (s *EntryService) Add(ctx context.Context, entry domain.Entry, photo []byte) (domain.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(entry.ID) >= 0 {
		return domain.Entry{}, fmt.Errorf("entry %s already exists", entry.ID)
	}

	entry.ImagePath = ""
	if photo != nil {
		jpg, err := s.encodePhoto(photo)
		if err != nil {
			return domain.Entry{}, err
		}
		key, err := s.storePhoto(ctx, entry.ID, jpg)
		if err != nil {
			return domain.Entry{}, err
		}
		entry.ImagePath = key
	}

	prev := s.entries
	s.entries = append(slices.Clip(prev), entry)
	if err := s.persist(ctx); err != nil {
		s.entries = prev
		if entry.HasPhoto() {
			s.deletePhoto(ctx, entry.ImagePath)
		}
		return domain.Entry{}, err
	}

	s.logger.Info("entry added", "entry_id", entry.ID, "date", entry.Date.Format(time.DateOnly))
	return entry, nil
}

// Find returns the first entry, in insertion order, on date's calendar day.
func (s *EntryService) Find(date time.Time) (domain.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if domain.SameDay(e.Date, date, s.loc) {
			return e, true
		}
	}
	return domain.Entry{}, false
}

// FindAll returns every entry on date's calendar day, in insertion order.
func (s *EntryService) FindAll(date time.Time) []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []domain.Entry
	for _, e := range s.entries {
		if domain.SameDay(e.Date, date, s.loc) {
			found = append(found, e)
		}
	}
	return found
}

func (s *EntryService) HasEntry(date time.Time) bool {
	_, ok := s.Find(date)
	return ok
}

func (s *EntryService) Get(id string) (domain.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.entries[i], true
	}
	return domain.Entry{}, false
}

// Update overwrites the fields of the entry identified by id with replacement.
// The ID never changes. When photo is non-nil it is encoded first; only a
// photo that encodes replaces the old file, which is deleted before the new
// one is stored. Otherwise the existing photo is kept.
func (s *EntryService) Update(ctx context.Context, id string, replacement domain.Entry, photo []byte) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Entry{}, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
	}
	old := s.entries[i]

	replacement.ID = old.ID
	replacement.ImagePath = old.ImagePath
	if photo != nil {
		jpg, err := s.encodePhoto(photo)
		if err != nil {
			return domain.Entry{}, err
		}
		if old.HasPhoto() {
			s.deletePhoto(ctx, old.ImagePath)
		}
		key, err := s.storePhoto(ctx, old.ID, jpg)
		if err != nil {
			return domain.Entry{}, err
		}
		replacement.ImagePath = key
	}

	s.entries[i] = replacement
	if err := s.persist(ctx); err != nil {
		s.entries[i] = old
		return domain.Entry{}, err
	}

	s.logger.Info("entry updated", "entry_id", id, "photo_replaced", photo != nil)
	return replacement, nil
}

// RemoveAt removes the entries at the given insertion-order positions. Either
// every index is valid and all are removed, or nothing changes.
func (s *EntryService) RemoveAt(ctx context.Context, indices ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(s.entries) {
			return fmt.Errorf("%w: %d", domain.ErrIndexOutOfRange, i)
		}
		drop[i] = true
	}
	return s.removeWhere(ctx, func(i int, _ domain.Entry) bool { return drop[i] })
}

func (s *EntryService) RemoveByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
	}
	return s.removeWhere(ctx, func(_ int, e domain.Entry) bool { return e.ID == id })
}

// RemoveBetween removes every entry whose calendar day lies in [from, to]
// and reports how many were removed.
func (s *EntryService) RemoveBetween(ctx context.Context, from, to time.Time) (int, error) {
	start := domain.StartOfDay(from, s.loc)
	last := domain.StartOfDay(to, s.loc)
	if last.Before(start) {
		return 0, fmt.Errorf("invalid range: %s is after %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	end := last.AddDate(0, 0, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	err := s.removeWhere(ctx, func(_ int, e domain.Entry) bool {
		in := !e.Date.Before(start) && e.Date.Before(end)
		if in {
			count++
		}
		return in
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Entries returns a copy of the collection in insertion order.
func (s *EntryService) Entries() []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Chronological returns a copy of the collection sorted by date. Entries on
// the same instant keep their insertion order.
func (s *EntryService) Chronological() []domain.Entry {
	entries := s.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries
}

// InMonth returns the entries dated in the given month, chronologically.
func (s *EntryService) InMonth(year int, month time.Month) []domain.Entry {
	var out []domain.Entry
	for _, e := range s.Chronological() {
		d := e.Date.In(s.loc)
		if d.Year() == year && d.Month() == month {
			out = append(out, e)
		}
	}
	return out
}

// Photo opens the photo of the entry identified by id.
func (s *EntryService) Photo(ctx context.Context, id string) (io.ReadCloser, string, error) {
	entry, ok := s.Get(id)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
	}
	if !entry.HasPhoto() {
		return nil, "", domain.ErrPhotoNotFound
	}
	return s.photoStg.Get(ctx, entry.ImagePath)
}

// removeWhere drops matching entries, persists, and then deletes their photos.
// Callers hold s.mu.
func (s *EntryService) removeWhere(ctx context.Context, match func(int, domain.Entry) bool) error {
	prev := s.entries
	kept := make([]domain.Entry, 0, len(prev))
	var removed []domain.Entry
	for i, e := range prev {
		if match(i, e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	if len(removed) == 0 {
		return nil
	}

	s.entries = kept
	if err := s.persist(ctx); err != nil {
		s.entries = prev
		return err
	}

	for _, e := range removed {
		if e.HasPhoto() {
			s.deletePhoto(ctx, e.ImagePath)
		}
		s.logger.Info("entry removed", "entry_id", e.ID)
	}
	return nil
}

func (s *EntryService) persist(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.entries); err != nil {
		s.logger.Error("failed to persist entries", "count", len(s.entries), "error", err)
		return fmt.Errorf("%w: %v", domain.ErrPersist, err)
	}
	return nil
}

// encodePhoto re-encodes an upload as JPEG before anything is written.
func (s *EntryService) encodePhoto(photo []byte) ([]byte, error) {
	jpg, err := imaging.ToJPEG(photo, s.jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare photo: %w", err)
	}
	return jpg, nil
}

func (s *EntryService) storePhoto(ctx context.Context, id string, jpg []byte) (string, error) {
	key, err := s.photoStg.Save(ctx, id, bytes.NewReader(jpg))
	if err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "entry_id", id, "storage_key", key, "bytes", len(jpg))
	return key, nil
}

func (s *EntryService) deletePhoto(ctx context.Context, key string) {
	if err := s.photoStg.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrPhotoNotFound) {
		s.logger.Error("failed to delete photo file", "storage_key", key, "error", err)
	}
}

func (s *EntryService) indexOf(id string) int {
	return slices.IndexFunc(s.entries, func(e domain.Entry) bool { return e.ID == id })
}
