// Package docnumber provides stock document auto-numbering.
// Numbers are unique per (tenant, document type) and formatted as
// "{TYPE}-{NNNNNN}", e.g. "RECEIPT-000042".
package docnumber

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/nadirsultanli/OMS-sub000/internal/core/tenant"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPSERT ... RETURNING for every number.
	// Sequential, and gap-free as long as the querier routes the allocation
	// into the creating transaction so a rollback returns the number. The
	// right choice for anything auditable.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory. Faster, but a
	// restart abandons the unused remainder of the current range.
	StrategyCached
)

const defaultRangeSize = 50

// Options configures number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is how many numbers StrategyCached reserves per DB round trip.
	RangeSize int64
}

// DefaultOptions returns the strict strategy.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Querier is the minimal database surface the generator needs. The querier
// decides transaction affinity: hand it the transaction manager when numbers
// must allocate inside the caller's transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Generator hands out document numbers.
type Generator interface {
	Next(ctx context.Context, docType string) (string, error)
}

type cachedRange struct {
	current int64
	max     int64
}

// Service implements Generator against the doc_sequences table.
// One instance is shared by all tenants; the in-memory range cache is keyed
// by tenant so cached ranges never cross tenant boundaries.
type Service struct {
	querier Querier
	opts    Options

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// New creates a numbering service.
func New(querier Querier, opts *Options) *Service {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Service{
		querier: querier,
		opts:    *opts,
		ranges:  make(map[string]*cachedRange),
	}
}

// Next returns the next formatted number for docType within the tenant in ctx.
func (s *Service) Next(ctx context.Context, docType string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("docnumber service is not initialized")
	}
	if docType == "" {
		return "", fmt.Errorf("document type is required")
	}

	tenantID := tenant.MustID(ctx)

	var (
		num int64
		err error
	)
	switch s.opts.Strategy {
	case StrategyCached:
		num, err = s.nextCached(ctx, tenantID.String(), docType)
	default:
		num, err = s.nextStrict(ctx, tenantID.String(), docType)
	}
	if err != nil {
		return "", err
	}

	return Format(docType, num), nil
}

func (s *Service) nextStrict(ctx context.Context, tenantID, docType string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO doc_sequences (tenant_id, doc_type, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, doc_type)
		DO UPDATE SET current_val = doc_sequences.current_val + 1
		RETURNING current_val
	`, tenantID, docType).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next number: %w", err)
	}
	return num, nil
}

func (s *Service) nextCached(ctx context.Context, tenantID, docType string) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	key := tenantID + ":" + docType
	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := s.opts.RangeSize
		if size <= 0 {
			size = defaultRangeSize
		}

		// current_val tracks the last value handed out, so bumping it by
		// size reserves (newMax-size, newMax].
		var newMax int64
		err := s.querier.QueryRow(ctx, `
			INSERT INTO doc_sequences (tenant_id, doc_type, current_val)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, doc_type)
			DO UPDATE SET current_val = doc_sequences.current_val + $3
			RETURNING current_val
		`, tenantID, docType, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve number range: %w", err)
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNext forces the counter for docType to value (migration support).
func (s *Service) SetNext(ctx context.Context, docType string, value int64) error {
	tenantID := tenant.MustID(ctx)

	var result int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO doc_sequences (tenant_id, doc_type, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, doc_type)
		DO UPDATE SET current_val = $3
		RETURNING current_val
	`, tenantID.String(), docType, value).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, tenantID.String()+":"+docType)
	s.cacheMu.Unlock()

	return err
}

// Format renders a document number.
func Format(docType string, num int64) string {
	return fmt.Sprintf("%s-%06d", docType, num)
}

// Parse extracts the numeric part of a formatted number, or -1.
func Parse(formatted string) int64 {
	idx := strings.LastIndex(formatted, "-")
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
