package storage

import (
	"context"
	"io"
)

// FileStore persists uploaded files and hands back opaque references that the
// HTTP layer can serve back under /public.
type FileStore interface {
	Store(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}
