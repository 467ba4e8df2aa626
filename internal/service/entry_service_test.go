package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/weightlog/internal/db"
	"github.com/vbonduro/weightlog/internal/domain"
	"github.com/vbonduro/weightlog/internal/imaging"
	"github.com/vbonduro/weightlog/internal/store"
)

// stubRepo is an in-memory entryRepository whose saves can be made to fail.
type stubRepo struct {
	mu      sync.Mutex
	saved   []domain.Entry
	saves   int
	loadErr error
	saveErr error
}

func (r *stubRepo) Load(_ context.Context) ([]domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]domain.Entry(nil), r.saved...), nil
}

func (r *stubRepo) Save(_ context.Context, entries []domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.saved = append([]domain.Entry(nil), entries...)
	return nil
}

// stubPhotoStore is a minimal in-memory photostore.PhotoStore for tests.
type stubPhotoStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newStubPhotoStore() *stubPhotoStore {
	return &stubPhotoStore{saved: make(map[string][]byte)}
}

func (s *stubPhotoStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, _ := io.ReadAll(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	key := name + ".jpg"
	s.saved[key] = data
	return key, nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[key]
	if !ok {
		return nil, "", domain.ErrPhotoNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (s *stubPhotoStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.saved[key]; !ok {
		return domain.ErrPhotoNotFound
	}
	delete(s.saved, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubPhotoStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.saved[key]
	return ok
}

func pngPhoto(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	img.Set(0, 0, color.Gray{Y: 255 - shade})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func sampleEntry(date time.Time) domain.Entry {
	return domain.Entry{
		Date:              date,
		Weight:            80.0,
		BodyFatPercent:    20,
		MuscleMassPercent: 40,
		VisceralFat:       5,
		WeightUnit:        domain.Kilograms,
	}
}

func newTestService(t *testing.T) (*EntryService, *stubRepo, *stubPhotoStore) {
	t.Helper()
	repo := &stubRepo{}
	photos := newStubPhotoStore()
	svc := NewEntryService(repo, photos, time.UTC, imaging.DefaultQuality, slog.Default())
	require.NoError(t, svc.Load(context.Background()))
	return svc, repo, photos
}

func TestEntryServiceAddThenFind(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	found, ok := svc.Find(time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, added, found)
	assert.Equal(t, 80.0, found.Weight)
	assert.Equal(t, domain.Kilograms, found.WeightUnit)
	assert.Equal(t, 20.0, found.BodyFatPercent)
	assert.Equal(t, 40.0, found.MuscleMassPercent)
	assert.Equal(t, 5, found.VisceralFat)

	_, ok = svc.Find(day(2024, 3, 2))
	assert.False(t, ok)

	assert.Equal(t, []domain.Entry{added}, repo.saved)
}

func TestEntryServiceAdd_KeepsProvidedID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	e := sampleEntry(day(2024, 3, 1))
	e.ID = "fixed-id"
	added, err := svc.Add(ctx, e, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", added.ID)

	_, err = svc.Add(ctx, e, nil)
	assert.Error(t, err, "ids are unique")
	assert.Len(t, svc.Entries(), 1)
}

func TestEntryServiceAdd_DuplicateDayFirstWins(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)
	second := sampleEntry(day(2024, 3, 1).Add(6 * time.Hour))
	second.Weight = 79.2
	second, err = svc.Add(ctx, second, nil)
	require.NoError(t, err)

	found, ok := svc.Find(day(2024, 3, 1))
	require.True(t, ok)
	assert.Equal(t, first.ID, found.ID)

	all := svc.FindAll(day(2024, 3, 1))
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[1].ID)
}

func TestEntryServiceAdd_WithPhoto(t *testing.T) {
	svc, _, photos := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), pngPhoto(t, 10))
	require.NoError(t, err)
	assert.Equal(t, added.ID+".jpg", added.ImagePath)
	require.True(t, photos.has(added.ImagePath))

	rc, mime, err := svc.Photo(ctx, added.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	detected, ok := imaging.DetectMIME(data)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", detected, "photos are stored as JPEG")
}

func TestEntryServiceAdd_IgnoresCallerImagePath(t *testing.T) {
	svc, _, _ := newTestService(t)

	e := sampleEntry(day(2024, 3, 1))
	e.ImagePath = "../../etc/passwd"
	added, err := svc.Add(context.Background(), e, nil)
	require.NoError(t, err)
	assert.Empty(t, added.ImagePath)
}

func TestEntryServiceAdd_BadPhoto(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.Add(context.Background(), sampleEntry(day(2024, 3, 1)), []byte("not an image"))
	assert.ErrorIs(t, err, imaging.ErrUnsupportedFormat)
	assert.Empty(t, svc.Entries())
	assert.Zero(t, repo.saves)
}

func TestEntryServiceAdd_PersistFailureRollsBack(t *testing.T) {
	svc, repo, photos := newTestService(t)
	ctx := context.Background()

	repo.saveErr = errors.New("disk full")
	_, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), pngPhoto(t, 50))
	assert.ErrorIs(t, err, domain.ErrPersist)

	assert.Empty(t, svc.Entries())
	assert.False(t, svc.HasEntry(day(2024, 3, 1)))
	assert.Len(t, photos.deleted, 1, "freshly written photo is removed again")
}

func TestEntryServiceUpdate_OnlyTouchesTarget(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)
	b, err := svc.Add(ctx, sampleEntry(day(2024, 3, 2)), nil)
	require.NoError(t, err)
	c, err := svc.Add(ctx, sampleEntry(day(2024, 3, 3)), nil)
	require.NoError(t, err)

	replacement := sampleEntry(day(2024, 3, 2))
	replacement.Weight = 176.4
	replacement.WeightUnit = domain.Pounds
	replacement.ID = "ignored"

	updated, err := svc.Update(ctx, b.ID, replacement, nil)
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.ID, "identity is immutable")
	assert.Equal(t, 176.4, updated.Weight)

	assert.Equal(t, []domain.Entry{a, updated, c}, svc.Entries())
	assert.Equal(t, svc.Entries(), repo.saved)
}

func TestEntryServiceUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), "missing", sampleEntry(day(2024, 3, 1)), nil)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestEntryServiceUpdate_ReplacesPhoto(t *testing.T) {
	svc, _, photos := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), pngPhoto(t, 10))
	require.NoError(t, err)
	before := append([]byte(nil), photos.saved[added.ImagePath]...)

	updated, err := svc.Update(ctx, added.ID, sampleEntry(day(2024, 3, 1)), pngPhoto(t, 240))
	require.NoError(t, err)

	assert.Equal(t, added.ImagePath, updated.ImagePath)
	assert.Equal(t, []string{added.ImagePath}, photos.deleted, "old photo is deleted first")
	assert.NotEqual(t, before, photos.saved[updated.ImagePath])
}

func TestEntryServiceUpdate_BadPhotoKeepsOld(t *testing.T) {
	svc, repo, photos := newTestService(t)
	ctx := context.Background()

	valid := pngPhoto(t, 10)
	added, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), valid)
	require.NoError(t, err)
	saves := repo.saves

	replacement := sampleEntry(day(2024, 3, 1))
	replacement.Weight = 90
	_, err = svc.Update(ctx, added.ID, replacement, valid[:40])
	assert.ErrorIs(t, err, imaging.ErrUnsupportedFormat)

	assert.True(t, photos.has(added.ImagePath), "old photo is still on disk")
	assert.Empty(t, photos.deleted)
	assert.Equal(t, saves, repo.saves, "nothing is persisted")

	got, ok := svc.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, added, got)

	rc, _, err := svc.Photo(ctx, added.ID)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}

func TestEntryServiceUpdate_KeepsPhotoWhenNoneGiven(t *testing.T) {
	svc, _, photos := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), pngPhoto(t, 10))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, added.ID, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)
	assert.Equal(t, added.ImagePath, updated.ImagePath)
	assert.Empty(t, photos.deleted)
}

func TestEntryServiceUpdate_PersistFailureRestoresEntry(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)

	repo.saveErr = errors.New("read-only")
	replacement := sampleEntry(day(2024, 3, 1))
	replacement.Weight = 70
	_, err = svc.Update(ctx, added.ID, replacement, nil)
	assert.ErrorIs(t, err, domain.ErrPersist)

	got, ok := svc.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, added, got)
}

func TestEntryServiceRemoveAt(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	var added []domain.Entry
	for d := 1; d <= 4; d++ {
		e, err := svc.Add(ctx, sampleEntry(day(2024, 3, d)), nil)
		require.NoError(t, err)
		added = append(added, e)
	}

	require.NoError(t, svc.RemoveAt(ctx, 1))
	assert.Equal(t, []domain.Entry{added[0], added[2], added[3]}, svc.Entries())
	assert.Len(t, repo.saved, 3)

	require.NoError(t, svc.RemoveAt(ctx, 0, 2))
	assert.Equal(t, []domain.Entry{added[2]}, svc.Entries())
}

func TestEntryServiceRemoveAt_OutOfRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.RemoveAt(ctx, 0, 1), domain.ErrIndexOutOfRange)
	assert.ErrorIs(t, svc.RemoveAt(ctx, -1), domain.ErrIndexOutOfRange)
	assert.Len(t, svc.Entries(), 1, "nothing is removed when any index is invalid")
}

func TestEntryServiceRemoveByID_DeletesPhoto(t *testing.T) {
	svc, _, photos := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), pngPhoto(t, 10))
	require.NoError(t, err)

	require.NoError(t, svc.RemoveByID(ctx, added.ID))
	assert.Empty(t, svc.Entries())
	assert.False(t, photos.has(added.ImagePath))

	assert.ErrorIs(t, svc.RemoveByID(ctx, added.ID), domain.ErrEntryNotFound)
}

func TestEntryServiceRemove_PersistFailureKeepsEntries(t *testing.T) {
	svc, repo, photos := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), pngPhoto(t, 10))
	require.NoError(t, err)

	repo.saveErr = errors.New("locked")
	assert.ErrorIs(t, svc.RemoveAt(ctx, 0), domain.ErrPersist)
	assert.Len(t, svc.Entries(), 1)
	assert.True(t, photos.has(added.ImagePath), "photo survives a failed removal")
}

func TestEntryServiceRemoveBetween(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for d := 1; d <= 5; d++ {
		_, err := svc.Add(ctx, sampleEntry(day(2024, 3, d)), nil)
		require.NoError(t, err)
	}

	n, err := svc.RemoveBetween(ctx, time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC), day(2024, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	remaining := svc.Entries()
	require.Len(t, remaining, 2)
	assert.Equal(t, 1, remaining[0].Date.Day())
	assert.Equal(t, 5, remaining[1].Date.Day())

	_, err = svc.RemoveBetween(ctx, day(2024, 3, 4), day(2024, 3, 1))
	assert.Error(t, err)
}

func TestEntryServiceRemoveBetween_ToIsDayBeforeFrom(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	for d := 1; d <= 3; d++ {
		_, err := svc.Add(ctx, sampleEntry(day(2024, 3, d)), nil)
		require.NoError(t, err)
	}
	saves := repo.saves

	n, err := svc.RemoveBetween(ctx, day(2024, 3, 2), day(2024, 3, 1))
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, svc.Entries(), 3)
	assert.Equal(t, saves, repo.saves)
}

func TestEntryServiceChronologicalAndInMonth(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, d := range []time.Time{day(2024, 3, 5), day(2024, 2, 28), day(2024, 3, 1)} {
		_, err := svc.Add(ctx, sampleEntry(d), nil)
		require.NoError(t, err)
	}

	var days []int
	for _, e := range svc.Chronological() {
		days = append(days, e.Date.Day())
	}
	assert.Equal(t, []int{28, 1, 5}, days)

	march := svc.InMonth(2024, time.March)
	require.Len(t, march, 2)
	assert.Equal(t, 1, march[0].Date.Day())

	// Insertion order is untouched.
	assert.Equal(t, 5, svc.Entries()[0].Date.Day())
}

func TestEntryServiceLoad_Corrupt(t *testing.T) {
	repo := &stubRepo{}
	svc := NewEntryService(repo, newStubPhotoStore(), time.UTC, imaging.DefaultQuality, slog.Default())
	ctx := context.Background()

	require.NoError(t, svc.Load(ctx))
	_, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)

	repo.loadErr = domain.ErrCorruptData
	err = svc.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrCorruptData)
	assert.Empty(t, svc.Entries(), "corrupt data reads as an empty collection")
}

func TestEntryServiceRestartsFromBlobStore(t *testing.T) {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	ctx := context.Background()

	repo := store.NewEntryBlobStore(store.NewKVStore(d))
	svc := NewEntryService(repo, newStubPhotoStore(), time.UTC, imaging.DefaultQuality, slog.Default())
	require.NoError(t, svc.Load(ctx))

	a, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)
	b, err := svc.Add(ctx, sampleEntry(day(2024, 3, 2)), nil)
	require.NoError(t, err)

	reopened := NewEntryService(repo, newStubPhotoStore(), time.UTC, imaging.DefaultQuality, slog.Default())
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, []domain.Entry{a, b}, reopened.Entries())
}

func TestEntryServiceRestartsFromTableStore(t *testing.T) {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	ctx := context.Background()

	repo := store.NewEntryTableStore(d)
	svc := NewEntryService(repo, newStubPhotoStore(), time.UTC, imaging.DefaultQuality, slog.Default())
	require.NoError(t, svc.Load(ctx))

	a, err := svc.Add(ctx, sampleEntry(day(2024, 3, 1)), nil)
	require.NoError(t, err)
	_, err = svc.Add(ctx, sampleEntry(day(2024, 3, 2)), nil)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveAt(ctx, 1))

	reopened := NewEntryService(repo, newStubPhotoStore(), time.UTC, imaging.DefaultQuality, slog.Default())
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, []domain.Entry{a}, reopened.Entries())
}
