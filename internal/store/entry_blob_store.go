package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vbonduro/weightlog/internal/domain"
)

// EntriesKey is the fixed key the serialized collection lives under.
const EntriesKey = "Entries"

// blobKV is the subset of KVStore that EntryBlobStore requires.
type blobKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// EntryBlobStore persists the whole entry collection as a single JSON array
// under one key. Every save rewrites the full blob.
type EntryBlobStore struct {
	kv  blobKV
	key string
}

func NewEntryBlobStore(kv blobKV) *EntryBlobStore {
	return &EntryBlobStore{kv: kv, key: EntriesKey}
}

func (s *EntryBlobStore) Load(ctx context.Context) ([]domain.Entry, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var entries []domain.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptData, err)
	}
	return entries, nil
}

func (s *EntryBlobStore) Save(ctx context.Context, entries []domain.Entry) error {
	if entries == nil {
		entries = []domain.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}
	return s.kv.Set(ctx, s.key, data)
}
