package photostore

import (
	"context"
	"io"
)

// PhotoStore keeps entry photos out of band from the entry collection. name is
// derived from the owning entry's identifier; the returned storage key is what
// the entry records as its image path.
type PhotoStore interface {
	Save(ctx context.Context, name string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}
