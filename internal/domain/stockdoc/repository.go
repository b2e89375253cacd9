package stockdoc

import (
	"context"
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
)

// Repository defines persistence for stock documents.
// All implementations scope queries by the tenant in the context.
type Repository interface {
	// Create inserts the document header.
	Create(ctx context.Context, doc *StockDoc) error

	// Update persists header changes with an optimistic version check and
	// bumps the version. Returns CONCURRENT_MODIFICATION on a stale version.
	Update(ctx context.Context, doc *StockDoc) error

	// GetByID returns the header without lines, or NOT_FOUND.
	GetByID(ctx context.Context, docID id.ID) (*StockDoc, error)

	// GetByIDForUpdate returns the header holding a row lock. Posting and
	// cancelling serialize on this lock.
	GetByIDForUpdate(ctx context.Context, docID id.ID) (*StockDoc, error)

	// GetLines returns the document's lines ordered by line number.
	GetLines(ctx context.Context, docID id.ID) ([]StockDocLine, error)

	// SaveLines replaces the document's lines.
	SaveLines(ctx context.Context, docID id.ID, lines []StockDocLine) error

	// FindByRef returns non-cancelled documents of docType referencing the
	// given business document (duplicate detection).
	FindByRef(ctx context.Context, refDocType string, refDocID id.ID, docType DocType) ([]StockDoc, error)

	// List returns headers matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]StockDoc, error)
}

// ListFilter narrows document listings.
type ListFilter struct {
	DocType     *DocType
	Status      *DocStatus
	WarehouseID *id.ID // matches either endpoint
	RefDocID    *id.ID
	DateFrom    *time.Time
	DateTo      *time.Time

	Limit  int
	Offset int
}
