package violations

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/sentinel/internal/identity"
	"github.com/JaimeStill/sentinel/pkg/pagination"
	"github.com/JaimeStill/sentinel/pkg/storage"
)

// ChangeFunc is called after a committed write to the collection.
type ChangeFunc func()

// System defines the public contract for violation operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Append persists rec under session. Preconditions are checked before
	// any round trip: the session must be ready and rec must carry at least
	// one violation type.
	Append(ctx context.Context, rec Record, session identity.Session) (*Record, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Record], error)

	Find(ctx context.Context, id uuid.UUID) (*Record, error)

	// Recent returns up to limit records, newest server timestamp first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	Review(ctx context.Context, id uuid.UUID, cmd ReviewCommand) (*Record, error)

	UploadMedia(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader) (string, error)
	DownloadMedia(ctx context.Context, id uuid.UUID, filename string) (*storage.Blob, error)

	// OnChange registers fn to run after each committed append or review.
	OnChange(fn ChangeFunc)
}
