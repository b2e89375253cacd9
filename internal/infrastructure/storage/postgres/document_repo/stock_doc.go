// Package document_repo provides the PostgreSQL implementation of the stock
// document repository.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stockdoc"
	"github.com/nadirsultanli/OMS-sub000/internal/infrastructure/storage/postgres"
)

const (
	docsTable     = "stock_docs"
	docLinesTable = "stock_doc_lines"
)

var docColumns = []string{
	"id", "tenant_id", "doc_no", "doc_type", "status",
	"source_warehouse_id", "dest_warehouse_id",
	"ref_doc_type", "ref_doc_id", "stock_status",
	"total_qty", "notes",
	"posted_at", "posted_by",
	"version", "created_at", "updated_at",
}

var lineColumns = []string{
	"line_id", "line_no", "variant_id", "gas_type",
	"direction", "quantity", "unit_cost",
}

// Repo implements stockdoc.Repository.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stockdoc.Repository = (*Repo)(nil)

// New creates a new stock document repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the document header.
func (r *Repo) Create(ctx context.Context, doc *stockdoc.StockDoc) error {
	q := r.builder.Insert(docsTable).
		Columns(docColumns...).
		Values(
			doc.ID, tenant.MustID(ctx), doc.DocNo, string(doc.DocType), string(doc.Status),
			doc.SourceWarehouseID, doc.DestWarehouseID,
			doc.RefDocType, doc.RefDocID, doc.StockStatus,
			doc.TotalQty, doc.Notes,
			doc.PostedAt, doc.PostedBy,
			doc.Version, doc.CreatedAt, doc.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("stock document", "docNo", doc.DocNo)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Update persists header changes with an optimistic version check.
func (r *Repo) Update(ctx context.Context, doc *stockdoc.StockDoc) error {
	q := r.builder.Update(docsTable).
		Set("status", string(doc.Status)).
		Set("source_warehouse_id", doc.SourceWarehouseID).
		Set("dest_warehouse_id", doc.DestWarehouseID).
		Set("ref_doc_type", doc.RefDocType).
		Set("ref_doc_id", doc.RefDocID).
		Set("stock_status", doc.StockStatus).
		Set("total_qty", doc.TotalQty).
		Set("notes", doc.Notes).
		Set("posted_at", doc.PostedAt).
		Set("posted_by", doc.PostedBy).
		Set("version", doc.Version+1).
		Set("updated_at", doc.UpdatedAt).
		Where(squirrel.Eq{
			"id":        doc.ID,
			"tenant_id": tenant.MustID(ctx),
			"version":   doc.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone got there first.
		if _, getErr := r.GetByID(ctx, doc.ID); getErr != nil {
			return getErr
		}
		return apperror.NewConcurrentModification("stock document", doc.ID)
	}

	doc.Version++
	return nil
}

// GetByID returns the header without lines, or NOT_FOUND.
func (r *Repo) GetByID(ctx context.Context, docID id.ID) (*stockdoc.StockDoc, error) {
	return r.get(ctx, docID, false)
}

// GetByIDForUpdate returns the header holding a row lock.
func (r *Repo) GetByIDForUpdate(ctx context.Context, docID id.ID) (*stockdoc.StockDoc, error) {
	return r.get(ctx, docID, true)
}

func (r *Repo) get(ctx context.Context, docID id.ID, forUpdate bool) (*stockdoc.StockDoc, error) {
	q := r.builder.Select(docColumns...).
		From(docsTable).
		Where(squirrel.Eq{
			"id":        docID,
			"tenant_id": tenant.MustID(ctx),
		})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var doc stockdoc.StockDoc
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock document", docID)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// GetLines returns the document's lines ordered by line number.
func (r *Repo) GetLines(ctx context.Context, docID id.ID) ([]stockdoc.StockDocLine, error) {
	q := r.builder.Select(lineColumns...).
		From(docLinesTable).
		Where(squirrel.Eq{"doc_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []stockdoc.StockDocLine
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces the document's lines. Inside a transaction the insert
// rides the COPY protocol.
func (r *Repo) SaveLines(ctx context.Context, docID id.ID, lines []stockdoc.StockDocLine) error {
	delQ := r.builder.Delete(docLinesTable).Where(squirrel.Eq{"doc_id": docID})
	sql, args, err := delQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		columns := append([]string{"doc_id"}, lineColumns...)
		rows := make([][]any, 0, len(lines))
		for _, line := range lines {
			rows = append(rows, []any{
				docID, line.LineID, line.LineNo, line.VariantID, line.GasType,
				string(line.Direction), line.Quantity, line.UnitCost,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, docLinesTable, columns, rows); err != nil {
			return fmt.Errorf("copy lines: %w", err)
		}
		return nil
	}

	insQ := r.builder.Insert(docLinesTable).
		Columns(append([]string{"doc_id"}, lineColumns...)...)
	for _, line := range lines {
		insQ = insQ.Values(
			docID, line.LineID, line.LineNo, line.VariantID, line.GasType,
			string(line.Direction), line.Quantity, line.UnitCost,
		)
	}

	sql, args, err = insQ.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// FindByRef returns non-cancelled documents of docType referencing the given
// business document.
func (r *Repo) FindByRef(ctx context.Context, refDocType string, refDocID id.ID, docType stockdoc.DocType) ([]stockdoc.StockDoc, error) {
	q := r.builder.Select(docColumns...).
		From(docsTable).
		Where(squirrel.Eq{
			"tenant_id":    tenant.MustID(ctx),
			"ref_doc_type": refDocType,
			"ref_doc_id":   refDocID,
			"doc_type":     string(docType),
		}).
		Where(squirrel.NotEq{"status": string(stockdoc.StatusCancelled)})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var docs []stockdoc.StockDoc
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("select documents by ref: %w", err)
	}

	return docs, nil
}

// List returns headers matching the filter, newest first.
func (r *Repo) List(ctx context.Context, filter stockdoc.ListFilter) ([]stockdoc.StockDoc, error) {
	q := r.builder.Select(docColumns...).
		From(docsTable).
		Where(squirrel.Eq{"tenant_id": tenant.MustID(ctx)})

	if filter.DocType != nil {
		q = q.Where(squirrel.Eq{"doc_type": string(*filter.DocType)})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"source_warehouse_id": *filter.WarehouseID},
			squirrel.Eq{"dest_warehouse_id": *filter.WarehouseID},
		})
	}
	if filter.RefDocID != nil {
		q = q.Where(squirrel.Eq{"ref_doc_id": *filter.RefDocID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}

	q = q.OrderBy("created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var docs []stockdoc.StockDoc
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}

	return docs, nil
}
