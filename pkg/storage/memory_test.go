package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type testRow struct {
	UserID    string    `dynamodbav:"UserID"`
	Name      string    `dynamodbav:"Name"`
	Timestamp time.Time `dynamodbav:"Timestamp"`
}

type auditRow struct {
	AdminID   string    `dynamodbav:"AdminID"`
	Action    string    `dynamodbav:"Action"`
	Timestamp time.Time `dynamodbav:"Timestamp"`
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	key := UserKey("u-1")
	in := testRow{UserID: "u-1", Name: "alice"}
	if err := store.Put(ctx, key, in, nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var out testRow
	if err := store.Get(ctx, key, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.Name != "alice" {
		t.Errorf("Name = %q, want %q", out.Name, "alice")
	}

	if err := store.Get(ctx, UserKey("u-missing"), &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Conditions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := UserKey("u-1")

	// Create guarded by non-existence
	if err := store.Put(ctx, key, testRow{UserID: "u-1", Name: "alice"}, &Condition{Kind: CondNotExists}); err != nil {
		t.Fatalf("conditional create failed: %v", err)
	}
	if err := store.Put(ctx, key, testRow{UserID: "u-1"}, &Condition{Kind: CondNotExists}); !errors.Is(err, ErrConditionFailed) {
		t.Errorf("second conditional create = %v, want ErrConditionFailed", err)
	}

	// Update guarded by attribute value
	ok := &Condition{Kind: CondAttrEquals, Attr: "Name", Value: "alice"}
	if err := store.Put(ctx, key, testRow{UserID: "u-1", Name: "bob"}, ok); err != nil {
		t.Fatalf("attr-equals update failed: %v", err)
	}

	stale := &Condition{Kind: CondAttrEquals, Attr: "Name", Value: "alice"}
	if err := store.Put(ctx, key, testRow{UserID: "u-1", Name: "carol"}, stale); !errors.Is(err, ErrConditionFailed) {
		t.Errorf("stale attr-equals update = %v, want ErrConditionFailed", err)
	}

	// Update guarded by existence
	if err := store.Put(ctx, UserKey("u-2"), testRow{UserID: "u-2"}, &Condition{Kind: CondExists}); !errors.Is(err, ErrConditionFailed) {
		t.Errorf("exists condition on missing item = %v, want ErrConditionFailed", err)
	}
}

func TestMemoryStore_QuerySortOrderAndPaging(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := Key{PK: "USER#u-1", SK: fmt.Sprintf("ENROLL#c-%d", i)}
		if err := store.Put(ctx, key, testRow{UserID: "u-1"}, nil); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	// Row in another partition should not appear.
	if err := store.Put(ctx, Key{PK: "USER#u-2", SK: "ENROLL#c-0"}, testRow{UserID: "u-2"}, nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	out, err := store.Query(ctx, QueryInput{
		PK:       "USER#u-1",
		SKPrefix: "ENROLL#",
		Page:     Page{Limit: 3, Forward: true},
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(out.Items) != 3 {
		t.Fatalf("page 1: got %d items, want 3", len(out.Items))
	}
	if len(out.NextKey) == 0 {
		t.Fatal("page 1: expected a next key")
	}

	out2, err := store.Query(ctx, QueryInput{
		PK:       "USER#u-1",
		SKPrefix: "ENROLL#",
		Page:     Page{Limit: 3, Forward: true, StartKey: out.NextKey},
	})
	if err != nil {
		t.Fatalf("Query() page 2 error = %v", err)
	}
	if len(out2.Items) != 2 {
		t.Errorf("page 2: got %d items, want 2", len(out2.Items))
	}
	if len(out2.NextKey) != 0 {
		t.Errorf("page 2: expected no next key, got %v", out2.NextKey)
	}
}

func TestMemoryStore_QueryIndex(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		key := AuditKey(ts, fmt.Sprintf("a-%d", i))
		admin := "admin-1"
		if i == 3 {
			admin = "admin-2"
		}
		row := auditRow{AdminID: admin, Action: "USER_ROLE_CHANGE", Timestamp: ts}
		if err := store.Put(ctx, key, row, nil); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	// A row without the index sort attribute stays out of the index.
	if err := store.Put(ctx, UserKey("u-1"), testRow{UserID: "admin-1", Name: "x"}, nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	out, err := store.QueryIndex(ctx, IndexQueryInput{
		Index: IndexByAdmin,
		Value: "admin-1",
		Page:  Page{Forward: true},
	})
	if err != nil {
		t.Fatalf("QueryIndex() error = %v", err)
	}
	if len(out.Items) != 3 {
		t.Errorf("byAdmin: got %d items, want 3", len(out.Items))
	}

	out, err = store.QueryIndex(ctx, IndexQueryInput{
		Index: IndexByAction,
		Value: "USER_ROLE_CHANGE",
		From:  base.Format(time.RFC3339Nano),
		To:    base.Add(90 * time.Second).Format(time.RFC3339Nano),
		Page:  Page{Forward: true},
	})
	if err != nil {
		t.Fatalf("QueryIndex() range error = %v", err)
	}
	if len(out.Items) != 2 {
		t.Errorf("byAction range: got %d items, want 2", len(out.Items))
	}
}

func TestMemoryStore_Scan(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("u-%d", i)
		if err := store.Put(ctx, UserKey(id), testRow{UserID: id}, nil); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if err := store.Put(ctx, CourseKey("c-1"), testRow{UserID: "n/a"}, nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, EnrollmentKey("u-0", "c-1"), testRow{UserID: "u-0"}, nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	out, err := store.Scan(ctx, ScanInput{PKPrefix: PrefixUser, SKEquals: SKProfile})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(out.Items) != 3 {
		t.Errorf("profile scan: got %d items, want 3", len(out.Items))
	}

	out, err = store.Scan(ctx, ScanInput{PKPrefix: PrefixUser, SKPrefix: SKPrefixEnroll})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(out.Items) != 1 {
		t.Errorf("enrollment scan: got %d items, want 1", len(out.Items))
	}
}

func TestMemoryStore_TransactWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, UserKey("u-1"), testRow{UserID: "u-1", Name: "alice"}, nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// A failing condition on one op aborts the whole transaction.
	err := store.TransactWrite(ctx, []WriteOp{
		{Key: UserKey("u-1"), Entity: testRow{UserID: "u-1", Name: "bob"}, Cond: &Condition{Kind: CondAttrEquals, Attr: "Name", Value: "alice"}},
		{Key: UserKey("u-2"), Entity: testRow{UserID: "u-2"}, Cond: &Condition{Kind: CondExists}},
	})
	if !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("TransactWrite = %v, want ErrConditionFailed", err)
	}

	var row testRow
	if err := store.Get(ctx, UserKey("u-1"), &row); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row.Name != "alice" {
		t.Errorf("aborted transaction mutated item: Name = %q", row.Name)
	}

	// All conditions passing applies every op.
	err = store.TransactWrite(ctx, []WriteOp{
		{Key: UserKey("u-1"), Entity: testRow{UserID: "u-1", Name: "bob"}, Cond: &Condition{Kind: CondAttrEquals, Attr: "Name", Value: "alice"}},
		{Key: UserKey("u-2"), Entity: testRow{UserID: "u-2", Name: "carol"}, Cond: &Condition{Kind: CondNotExists}},
	})
	if err != nil {
		t.Fatalf("TransactWrite error = %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("item count = %d, want 2", store.Len())
	}
}

func TestMemoryStore_BatchWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ops := make([]WriteOp, 0, 30)
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("u-%02d", i)
		ops = append(ops, WriteOp{Key: UserKey(id), Entity: testRow{UserID: id}})
	}
	if err := store.BatchWrite(ctx, ops); err != nil {
		t.Fatalf("BatchWrite() error = %v", err)
	}
	if store.Len() != 30 {
		t.Fatalf("item count = %d, want 30", store.Len())
	}

	if err := store.BatchWrite(ctx, []WriteOp{{Key: UserKey("u-00"), Delete: true}}); err != nil {
		t.Fatalf("BatchWrite(delete) error = %v", err)
	}
	if store.Len() != 29 {
		t.Errorf("item count after delete = %d, want 29", store.Len())
	}
}
