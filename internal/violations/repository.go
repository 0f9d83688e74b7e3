package violations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/sentinel/internal/identity"
	"github.com/JaimeStill/sentinel/pkg/pagination"
	"github.com/JaimeStill/sentinel/pkg/query"
	"github.com/JaimeStill/sentinel/pkg/repository"
	"github.com/JaimeStill/sentinel/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
	appID      string

	mu        sync.RWMutex
	observers []ChangeFunc
}

// New creates a violation repository scoped to appID implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
	appID string,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "violations"),
		pagination: pagination,
		appID:      appID,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *repo) changed() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fn := range r.observers {
		fn()
	}
}

func (r *repo) Append(ctx context.Context, rec Record, session identity.Session) (*Record, error) {
	if !session.Ready {
		return nil, ErrIdentityNotReady
	}
	if len(rec.ViolationTypes) == 0 {
		return nil, ErrNothingToRecord
	}

	q := fmt.Sprintf(`
		INSERT INTO public.violations AS v (app_id, violation_types, capture_time_local, location, gps_lat, gps_lon, evidence_url, recorded_by_user_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, projection.Columns())

	args := []any{
		r.appID,
		rec.ViolationTypes,
		rec.CaptureTimeLocal,
		rec.Location,
		rec.GPS.Lat,
		rec.GPS.Lon,
		rec.EvidenceURL,
		session.ID,
		string(StatusPendingReview),
	}

	saved, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Record, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRecord)
	})
	if err != nil {
		return nil, fmt.Errorf("append violation: %w", dbErrors.Map(err))
	}

	r.logger.Info(
		"violation recorded",
		"id", saved.ID,
		"types", saved.ViolationTypes,
		"recorded_by", saved.RecordedByUserID,
	)

	r.changed()
	return &saved, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("AppID", r.appID).
		WhereSearch(page.Search, "Location", "RecordedByUserID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	records, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}

	result := pagination.NewPageResult(records, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	q += " AND v.app_id = $2"
	args = append(args, r.appID)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, dbErrors.Map(err)
	}
	return &rec, nil
}

func (r *repo) Recent(ctx context.Context, limit int) ([]Record, error) {
	q, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("AppID", r.appID).
		BuildLimit(limit)

	records, err := repository.QueryMany(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query recent violations: %w", err)
	}
	return records, nil
}

func (r *repo) Review(ctx context.Context, id uuid.UUID, cmd ReviewCommand) (*Record, error) {
	if !cmd.Status.Reviewed() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, cmd.Status)
	}
	if cmd.ReviewedBy == "" {
		return nil, fmt.Errorf("%w: reviewed_by is required", ErrInvalidRequest)
	}

	q := fmt.Sprintf(`
		UPDATE public.violations v
		SET status = $1, reviewed_by = $2, reviewed_at = NOW()
		WHERE v.id = $3 AND v.app_id = $4
		RETURNING %s`, projection.Columns())

	args := []any{string(cmd.Status), cmd.ReviewedBy, id, r.appID}

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Record, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRecord)
	})
	if err != nil {
		return nil, dbErrors.Map(err)
	}

	r.logger.Info("violation reviewed", "id", id, "status", rec.Status, "reviewed_by", cmd.ReviewedBy)

	r.changed()
	return &rec, nil
}

func (r *repo) UploadMedia(
	ctx context.Context,
	id uuid.UUID,
	filename, contentType string,
	body io.Reader,
) (string, error) {
	key := r.mediaKey(id, filename)

	exists, err := r.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check evidence media: %w", err)
	}
	if exists {
		return "", ErrMediaExists
	}

	if _, err := r.Find(ctx, id); err != nil {
		return "", err
	}

	if err := r.storage.Upload(ctx, key, body, contentType); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return "", ErrMediaExists
		}
		return "", fmt.Errorf("upload evidence media: %w", err)
	}

	r.logger.Info("evidence media stored", "id", id, "key", key)
	return key, nil
}

func (r *repo) DownloadMedia(ctx context.Context, id uuid.UUID, filename string) (*storage.Blob, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	blob, err := r.storage.Download(ctx, r.mediaKey(id, filename))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("download evidence media: %w", err)
	}
	return blob, nil
}

func (r *repo) mediaKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("evidence/%s/%s/%s", url.PathEscape(r.appID), id, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		name = "evidence"
	}
	return url.PathEscape(name)
}
