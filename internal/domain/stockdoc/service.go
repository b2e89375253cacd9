package stockdoc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nadirsultanli/OMS-sub000/internal/core/apperror"
	appctx "github.com/nadirsultanli/OMS-sub000/internal/core/context"
	"github.com/nadirsultanli/OMS-sub000/internal/core/id"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
	"github.com/nadirsultanli/OMS-sub000/internal/core/tx"
	"github.com/nadirsultanli/OMS-sub000/internal/core/types"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/audit"
	"github.com/nadirsultanli/OMS-sub000/internal/domain/stocklevel"
	"github.com/nadirsultanli/OMS-sub000/pkg/docnumber"
	"github.com/nadirsultanli/OMS-sub000/pkg/logger"
)

// Service provides business operations for stock documents.
// Posting is all-or-nothing: the header lock, every stock level mutation and
// the status transition commit in one transaction or not at all.
type Service struct {
	repo      Repository
	stock     *stocklevel.Service
	numbers   docnumber.Generator
	txManager tx.Manager
	trail     audit.Recorder
}

// NewService creates a new stock document service.
func NewService(
	repo Repository,
	stock *stocklevel.Service,
	numbers docnumber.Generator,
	txManager tx.Manager,
	trail audit.Recorder,
) *Service {
	if trail == nil {
		trail = audit.NopRecorder{}
	}
	return &Service{
		repo:      repo,
		stock:     stock,
		numbers:   numbers,
		txManager: txManager,
		trail:     trail,
	}
}

// Create validates and stores a new OPEN document, assigning a number when
// the caller did not. A second non-cancelled document of the same type for
// the same business reference is rejected as a duplicate.
func (s *Service) Create(ctx context.Context, doc *StockDoc) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	if doc.RefDocID != nil && !id.IsNil(*doc.RefDocID) {
		existing, err := s.repo.FindByRef(ctx, doc.RefDocType, *doc.RefDocID, doc.DocType)
		if err != nil {
			return fmt.Errorf("check duplicate reference: %w", err)
		}
		if len(existing) > 0 {
			return apperror.NewDuplicate("stock document", "refDocId", doc.RefDocID.String()).
				WithDetail("existing_doc_no", existing[0].DocNo)
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Numbers are allocated inside the creating transaction so a failed
		// create rolls the sequence back with it.
		if doc.DocNo == "" {
			number, err := s.numbers.Next(ctx, string(doc.DocType))
			if err != nil {
				return fmt.Errorf("generate document number: %w", err)
			}
			doc.DocNo = number
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stock document created",
		"id", doc.ID,
		"doc_no", doc.DocNo,
		"doc_type", doc.DocType)
	return nil
}

// GetByID retrieves a document with its lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*StockDoc, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// Update replaces header fields and lines of an OPEN document.
func (s *Service) Update(ctx context.Context, doc *StockDoc) error {
	if err := doc.CanModify(); err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// Post applies every line of the document to the stock level store and marks
// it POSTED. Any line failure (insufficient stock, validation) rolls back the
// whole document.
func (s *Service) Post(ctx context.Context, docID id.ID) (*StockDoc, error) {
	var doc *StockDoc
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetByIDForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanPost(); err != nil {
			return err
		}

		doc.Lines, err = s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		if err := doc.Validate(); err != nil {
			return err
		}

		if err := s.applyMovements(ctx, doc); err != nil {
			return err
		}

		doc.MarkPosted(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		s.record(ctx, doc, audit.ActionPost)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock document posted",
		"id", doc.ID,
		"doc_no", doc.DocNo,
		"doc_type", doc.DocType,
		"lines", len(doc.Lines))
	return doc, nil
}

// Cancel voids an OPEN document without any stock-level effect. Posted
// documents are terminal; a posted movement is undone by posting a
// compensating document.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*StockDoc, error) {
	var doc *StockDoc
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetByIDForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanCancel(); err != nil {
			return err
		}

		doc.Lines, err = s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}

		doc.MarkCancelled()
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		s.record(ctx, doc, audit.ActionCancel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock document cancelled",
		"id", doc.ID,
		"doc_no", doc.DocNo,
		"doc_type", doc.DocType)
	return doc, nil
}

// ReconcileCount snaps a stock bucket to a counted quantity and records the
// variance as a POSTED ADJUSTMENT_VARIANCE document, so every correction is
// attributable to a ledger entry. Snap and document commit together. A clean
// count has no movement to record and produces no document.
func (s *Service) ReconcileCount(ctx context.Context, key stocklevel.Key, physical types.Quantity) (*StockDoc, stocklevel.CountResult, error) {
	var (
		doc    *StockDoc
		result stocklevel.CountResult
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.stock.ReconcilePhysicalCount(ctx, key, physical)
		if err != nil {
			return err
		}
		if result.Variance.IsZero() {
			return nil
		}

		doc = New(tenant.MustID(ctx), DocTypeAdjustmentVariance)
		doc.SourceWarehouseID = &key.WarehouseID
		doc.StockStatus = string(key.Status)
		doc.Notes = fmt.Sprintf("physical count: system %s, counted %s",
			result.SystemQtyBefore, result.PhysicalCount)

		direction := DirectionIncrease
		if result.Variance.IsNegative() {
			direction = DirectionDecrease
		}
		doc.AddAdjustmentLine(key.Item.VariantID, key.Item.GasType, direction,
			result.Variance.Abs(), types.ZeroCost())

		if err := doc.Validate(); err != nil {
			return err
		}

		doc.DocNo, err = s.numbers.Next(ctx, string(doc.DocType))
		if err != nil {
			return fmt.Errorf("generate document number: %w", err)
		}

		// The snap above already moved the stock; the document is written
		// POSTED directly instead of replaying its line.
		doc.MarkPosted(appctx.GetUserID(ctx))
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		s.record(ctx, doc, audit.ActionPost)
		return nil
	})
	if err != nil {
		return nil, stocklevel.CountResult{}, err
	}

	if doc != nil {
		logger.Info(ctx, "count variance documented",
			"doc_no", doc.DocNo,
			"key", key.String(),
			"variance", result.Variance)
	}
	return doc, result, nil
}

// List retrieves document headers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]StockDoc, error) {
	return s.repo.List(ctx, filter)
}

// applyMovements dispatches the document's lines to the stock level store.
func (s *Service) applyMovements(ctx context.Context, doc *StockDoc) error {
	for _, line := range doc.Lines {
		if err := s.applyLine(ctx, doc, line); err != nil {
			return fmt.Errorf("line %d: %w", line.LineNo, err)
		}
	}
	return nil
}

func (s *Service) applyLine(ctx context.Context, doc *StockDoc, line StockDocLine) error {
	item := stocklevel.Item{VariantID: line.VariantID, GasType: line.GasType}

	switch doc.DocType {
	case DocTypeReceipt:
		key := stocklevel.Key{WarehouseID: *doc.DestWarehouseID, Item: item, Status: stocklevel.StatusOnHand}
		return s.stock.Receive(ctx, key, line.Quantity, line.UnitCost)

	case DocTypeIssue:
		key := stocklevel.Key{WarehouseID: *doc.SourceWarehouseID, Item: item, Status: stocklevel.StatusOnHand}
		return s.stock.Issue(ctx, key, line.Quantity, stocklevel.IssueOptions{DocType: string(doc.DocType)})

	case DocTypeTransferWarehouse:
		return s.stock.TransferBetweenWarehouses(ctx, *doc.SourceWarehouseID, *doc.DestWarehouseID,
			item, stocklevel.StatusOnHand, line.Quantity,
			stocklevel.IssueOptions{DocType: string(doc.DocType)})

	case DocTypeTransferTruck:
		if doc.DestWarehouseID == nil || id.IsNil(*doc.DestWarehouseID) {
			// Outbound load: depot shelf to the truck's bucket.
			return s.stock.TransferBetweenStatuses(ctx, *doc.SourceWarehouseID, item, line.Quantity,
				stocklevel.StatusOnHand, stocklevel.StatusTruckStock,
				stocklevel.IssueOptions{DocType: string(doc.DocType)})
		}
		// Return unload: truck bucket back onto a depot shelf, possibly a
		// different depot than the truck loaded from.
		from := stocklevel.Key{WarehouseID: *doc.SourceWarehouseID, Item: item, Status: stocklevel.StatusTruckStock}
		to := stocklevel.Key{WarehouseID: *doc.DestWarehouseID, Item: item, Status: stocklevel.StatusOnHand}
		return s.stock.Move(ctx, from, to, line.Quantity,
			stocklevel.IssueOptions{DocType: string(doc.DocType)})

	case DocTypeAdjustmentVariance:
		key := stocklevel.Key{WarehouseID: *doc.SourceWarehouseID, Item: item, Status: doc.Bucket()}
		if line.Direction == DirectionIncrease {
			return s.stock.Receive(ctx, key, line.Quantity, line.UnitCost)
		}
		// A shrinkage write-down records reality; it must not bounce off the
		// negative-stock rule.
		return s.stock.Issue(ctx, key, line.Quantity, stocklevel.IssueOptions{
			AllowNegative: true,
			DocType:       string(doc.DocType),
		})

	case DocTypePhysicalCount:
		key := stocklevel.Key{WarehouseID: *doc.SourceWarehouseID, Item: item, Status: doc.Bucket()}
		result, err := s.stock.ReconcilePhysicalCount(ctx, key, line.Quantity)
		if err != nil {
			return err
		}
		logger.Info(ctx, "count line applied",
			"doc_no", doc.DocNo,
			"line_no", line.LineNo,
			"variance", result.Variance)
		return nil

	default:
		return apperror.NewInvalidStockOperation(fmt.Sprintf("document type %s cannot be posted", doc.DocType))
	}
}

// record appends an audit entry; a failed write is logged and swallowed so it
// cannot roll back the business transaction.
func (s *Service) record(ctx context.Context, doc *StockDoc, action audit.Action) {
	payload, err := json.Marshal(doc)
	if err != nil {
		logger.Warn(ctx, "audit payload marshal failed", "doc_no", doc.DocNo, "error", err)
		return
	}

	entry := audit.Entry{
		TenantID:   doc.TenantID,
		DocID:      doc.ID,
		DocType:    string(doc.DocType),
		DocNo:      doc.DocNo,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := s.trail.Record(ctx, entry); err != nil {
		logger.Warn(ctx, "audit record failed", "doc_no", doc.DocNo, "error", err)
	}
}
