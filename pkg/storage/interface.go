// Package storage provides typed access to the single wide-row table
// behind the admin plane. One Store interface covers item gets, sort-key
// prefix queries, secondary-index reads, conditional writes and
// transactional mutate-then-audit writes.
package storage

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	// ErrNotFound is returned by Get when no item exists at the key.
	ErrNotFound = errors.New("item not found")

	// ErrConditionFailed is returned when a conditional write loses to a
	// concurrent writer or its precondition does not hold.
	ErrConditionFailed = errors.New("conditional write failed")
)

// Key is the composite primary key of one row.
type Key struct {
	PK string
	SK string
}

// CondKind selects a write precondition. The vocabulary is deliberately
// small so that every implementation can evaluate it exactly.
type CondKind int

const (
	// CondNotExists requires that no item exists at the key.
	CondNotExists CondKind = iota
	// CondExists requires that an item exists at the key.
	CondExists
	// CondAttrEquals requires that the named string attribute currently
	// holds the given value. Used to serialize read-modify-write updates.
	CondAttrEquals
)

// Condition is a write precondition. A nil *Condition means unconditional.
type Condition struct {
	Kind  CondKind
	Attr  string
	Value string
}

// Page carries pagination inputs shared by queries and scans. StartKey is
// the NextKey of the previous page; an empty map or nil starts from the
// beginning.
type Page struct {
	Limit    int32
	StartKey map[string]string
	Forward  bool
}

// QueryInput describes a main-table query: all rows in one partition,
// optionally narrowed by a sort-key prefix or range.
type QueryInput struct {
	PK       string
	SKPrefix string
	SKFrom   string
	SKTo     string
	Page
}

// IndexQueryInput describes a secondary-index query. Index must be one of
// the names in IndexKeys; From/To bound the index sort attribute.
type IndexQueryInput struct {
	Index string
	Value string
	From  string
	To    string
	Page
}

// ScanInput describes a filtered scan over one entity namespace. SKEquals
// and SKPrefix are mutually exclusive narrowing filters.
type ScanInput struct {
	PKPrefix string
	SKEquals string
	SKPrefix string
	Page
}

// QueryOutput carries one page of raw items. NextKey is empty when the
// result set is exhausted.
type QueryOutput struct {
	Items   []map[string]types.AttributeValue
	NextKey map[string]string
}

// WriteOp is one element of a batch or transactional write.
type WriteOp struct {
	Key    Key
	Entity any
	Cond   *Condition
	Delete bool
}

// Store is the single access path to the table. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get loads the item at key into out. Returns ErrNotFound when absent.
	Get(ctx context.Context, key Key, out any) error

	// Put writes entity at key, optionally guarded by cond. Returns
	// ErrConditionFailed when the precondition does not hold.
	Put(ctx context.Context, key Key, entity any, cond *Condition) error

	// Delete removes the item at key. Deleting a missing item is not an
	// error.
	Delete(ctx context.Context, key Key) error

	// Query reads one page of rows from a single partition.
	Query(ctx context.Context, in QueryInput) (*QueryOutput, error)

	// QueryIndex reads one page of rows from a secondary index.
	QueryIndex(ctx context.Context, in IndexQueryInput) (*QueryOutput, error)

	// Scan reads one page of rows across an entity namespace.
	Scan(ctx context.Context, in ScanInput) (*QueryOutput, error)

	// BatchWrite applies unconditional puts and deletes in chunks.
	BatchWrite(ctx context.Context, ops []WriteOp) error

	// TransactWrite applies all ops atomically; if any condition fails the
	// whole transaction fails with ErrConditionFailed.
	TransactWrite(ctx context.Context, ops []WriteOp) error

	// HealthCheck verifies the backing table is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
