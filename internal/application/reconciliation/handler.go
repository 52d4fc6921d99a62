package reconciliation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// Handler holds the type-specific half of a synchronizer: how objects of one
// type are fetched from the source system and applied to the target system.
// The shared contract (mappings, audit, cursor) lives in Synchronizer.
type Handler interface {
	ObjectType() reconciliation.ObjectType
	SourceService() reconciliation.Service
	TargetService() reconciliation.Service

	// Prepare resolves and caches everything a run needs. It must succeed
	// before any other operation is used.
	Prepare(ctx context.Context) error

	// Fetch returns objects strictly after cursor. A nil limit is unbounded.
	Fetch(ctx context.Context, cursor string, limit *int) ([]reconciliation.RemoteObject, error)
	// Get fetches the current state of one object from the source system
	Get(ctx context.Context, id string) (reconciliation.RemoteObject, error)
	// Decode converts a webhook payload into a typed object
	Decode(payload []byte) (reconciliation.RemoteObject, error)

	// Create applies a new object to the target system and returns the target id
	Create(ctx context.Context, obj reconciliation.RemoteObject) (string, error)
	Update(ctx context.Context, obj reconciliation.RemoteObject, targetID string) error
	Delete(ctx context.Context, targetID string) error

	// ObjectURL links an object id to its page in the source system
	ObjectURL(objectID string) string
	// NextCursor returns the cursor value that follows obj
	NextCursor(obj reconciliation.RemoteObject) string
}

// unmappedUpdateCreator is implemented by handlers whose source system may send
// an update for an object that was never created in the target system.
type unmappedUpdateCreator interface {
	CreatesOnUnmappedUpdate() bool
}

// HandlerOption configures a handler
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	objectURLBase string
	now           func() time.Time
}

func defaultHandlerOptions() handlerOptions {
	return handlerOptions{now: time.Now}
}

// WithObjectURLBase sets the base URL used to link audit records to source objects
func WithObjectURLBase(base string) HandlerOption {
	return func(o *handlerOptions) {
		o.objectURLBase = strings.TrimRight(base, "/")
	}
}

// WithClock overrides the time source used for translation
func WithClock(now func() time.Time) HandlerOption {
	return func(o *handlerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func (o handlerOptions) objectURL(path, id string) string {
	if o.objectURLBase == "" {
		return ""
	}
	return o.objectURLBase + "/" + path + "/" + id
}

// parseSinceID parses a numeric cursor. An empty cursor starts from the beginning.
func parseSinceID(t reconciliation.ObjectType, cursor string) (int64, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || id < 0 {
		return 0, reconciliation.NewConfigurationError(reconciliation.CursorKey(t), reconciliation.ErrSettingInvalid,
			fmt.Sprintf("cursor %q is not a source id", cursor))
	}
	return id, nil
}

// parseObjectID parses a numeric source or target id
func parseObjectID(field, id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, reconciliation.NewTranslationError(field, reconciliation.ErrMissingField, fmt.Sprintf("invalid id %q", id))
	}
	return n, nil
}

// limitOf converts an optional limit into a PaginatedSearch take count
func limitOf(limit *int) int {
	if limit == nil {
		return -1
	}
	return *limit
}

func truncateObjects[T any](items []T, limit *int) []T {
	if limit != nil && len(items) > *limit {
		return items[:*limit]
	}
	return items
}

func unexpectedObject(want string, obj reconciliation.RemoteObject) error {
	return fmt.Errorf("expected %s, got %T", want, obj)
}
