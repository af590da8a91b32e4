package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MemoryStore is an in-memory Store used in tests and local development.
// It evaluates the same condition vocabulary and pagination contract as
// the DynamoDB implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[Key]map[string]types.AttributeValue
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[Key]map[string]types.AttributeValue),
	}
}

func attrString(item map[string]types.AttributeValue, name string) (string, bool) {
	v, ok := item[name]
	if !ok {
		return "", false
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// checkCondition evaluates cond against the current item at key. Caller
// holds the lock.
func (m *MemoryStore) checkCondition(key Key, cond *Condition) bool {
	if cond == nil {
		return true
	}
	current, exists := m.items[key]
	switch cond.Kind {
	case CondNotExists:
		return !exists
	case CondExists:
		return exists
	case CondAttrEquals:
		if !exists {
			return false
		}
		val, ok := attrString(current, cond.Attr)
		return ok && val == cond.Value
	}
	return false
}

// Get loads the item at key into out.
func (m *MemoryStore) Get(ctx context.Context, key Key, out any) error {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return attributevalue.UnmarshalMap(item, out)
}

// Put writes entity at key, optionally guarded by cond.
func (m *MemoryStore) Put(ctx context.Context, key Key, entity any, cond *Condition) error {
	item, err := marshalItem(key, entity)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.checkCondition(key, cond) {
		return ErrConditionFailed
	}
	m.items[key] = item
	return nil
}

// Delete removes the item at key.
func (m *MemoryStore) Delete(ctx context.Context, key Key) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// paginate sorts matched keys, positions after the start key and applies
// the limit. cmp orders keys; startAfter reports whether k is at or before
// the resume position.
func paginate(keys []Key, page Page, less func(a, b Key) bool, resume func(k Key) bool) ([]Key, bool) {
	sort.Slice(keys, func(i, j int) bool {
		if page.Forward {
			return less(keys[i], keys[j])
		}
		return less(keys[j], keys[i])
	})

	start := 0
	if resume != nil {
		for i, k := range keys {
			if resume(k) {
				start = i + 1
			}
		}
	}
	keys = keys[start:]

	truncated := false
	if page.Limit > 0 && len(keys) > int(page.Limit) {
		keys = keys[:page.Limit]
		truncated = true
	}
	return keys, truncated
}

// Query reads one page of rows from a single partition.
func (m *MemoryStore) Query(ctx context.Context, in QueryInput) (*QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Key
	for key := range m.items {
		if key.PK != in.PK {
			continue
		}
		if in.SKPrefix != "" && !strings.HasPrefix(key.SK, in.SKPrefix) {
			continue
		}
		if in.SKFrom != "" && in.SKTo != "" && (key.SK < in.SKFrom || key.SK > in.SKTo) {
			continue
		}
		matched = append(matched, key)
	}

	var resume func(Key) bool
	if startSK, ok := in.StartKey[AttrSK]; ok {
		resume = func(k Key) bool {
			if in.Forward {
				return k.SK <= startSK
			}
			return k.SK >= startSK
		}
	}

	page, truncated := paginate(matched, in.Page, func(a, b Key) bool { return a.SK < b.SK }, resume)

	out := &QueryOutput{}
	for _, key := range page {
		out.Items = append(out.Items, m.items[key])
	}
	if truncated && len(page) > 0 {
		last := page[len(page)-1]
		out.NextKey = map[string]string{AttrPK: last.PK, AttrSK: last.SK}
	}
	return out, nil
}

// QueryIndex reads one page of rows from a secondary index. Only items
// carrying both index key attributes participate, matching DynamoDB's
// sparse-index behavior.
func (m *MemoryStore) QueryIndex(ctx context.Context, in IndexQueryInput) (*QueryOutput, error) {
	keys, ok := IndexKeys[in.Index]
	if !ok {
		return nil, ErrNotFound
	}
	partAttr, sortAttr := keys[0], keys[1]

	m.mu.RLock()
	defer m.mu.RUnlock()

	sortVals := make(map[Key]string)
	var matched []Key
	for key, item := range m.items {
		part, ok := attrString(item, partAttr)
		if !ok || part != in.Value {
			continue
		}
		sortVal, ok := attrString(item, sortAttr)
		if !ok {
			continue
		}
		if in.From != "" && in.To != "" && (sortVal < in.From || sortVal > in.To) {
			continue
		}
		matched = append(matched, key)
		sortVals[key] = sortVal
	}

	less := func(a, b Key) bool {
		if sortVals[a] != sortVals[b] {
			return sortVals[a] < sortVals[b]
		}
		if a.PK != b.PK {
			return a.PK < b.PK
		}
		return a.SK < b.SK
	}

	var resume func(Key) bool
	if startSort, ok := in.StartKey[sortAttr]; ok {
		startPK, startSK := in.StartKey[AttrPK], in.StartKey[AttrSK]
		startKey := Key{PK: startPK, SK: startSK}
		resume = func(k Key) bool {
			if sortVals[k] != startSort {
				if in.Forward {
					return sortVals[k] < startSort
				}
				return sortVals[k] > startSort
			}
			if in.Forward {
				return !less(startKey, k)
			}
			return !less(k, startKey)
		}
		sortVals[startKey] = startSort
	}

	page, truncated := paginate(matched, in.Page, less, resume)

	out := &QueryOutput{}
	for _, key := range page {
		out.Items = append(out.Items, m.items[key])
	}
	if truncated && len(page) > 0 {
		last := page[len(page)-1]
		out.NextKey = map[string]string{
			AttrPK:   last.PK,
			AttrSK:   last.SK,
			sortAttr: sortVals[last],
		}
	}
	return out, nil
}

// Scan reads one page of rows across an entity namespace.
func (m *MemoryStore) Scan(ctx context.Context, in ScanInput) (*QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Key
	for key := range m.items {
		if !strings.HasPrefix(key.PK, in.PKPrefix) {
			continue
		}
		if in.SKEquals != "" && key.SK != in.SKEquals {
			continue
		}
		if in.SKPrefix != "" && !strings.HasPrefix(key.SK, in.SKPrefix) {
			continue
		}
		matched = append(matched, key)
	}

	less := func(a, b Key) bool {
		if a.PK != b.PK {
			return a.PK < b.PK
		}
		return a.SK < b.SK
	}

	var resume func(Key) bool
	if startPK, ok := in.StartKey[AttrPK]; ok {
		startKey := Key{PK: startPK, SK: in.StartKey[AttrSK]}
		resume = func(k Key) bool { return !less(startKey, k) }
	}

	// Scans always walk in key order.
	page := in.Page
	page.Forward = true
	keys, truncated := paginate(matched, page, less, resume)

	out := &QueryOutput{}
	for _, key := range keys {
		out.Items = append(out.Items, m.items[key])
	}
	if truncated && len(keys) > 0 {
		last := keys[len(keys)-1]
		out.NextKey = map[string]string{AttrPK: last.PK, AttrSK: last.SK}
	}
	return out, nil
}

// BatchWrite applies unconditional puts and deletes.
func (m *MemoryStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	prepared := make([]struct {
		key    Key
		item   map[string]types.AttributeValue
		delete bool
	}, 0, len(ops))

	for _, op := range ops {
		if op.Delete {
			prepared = append(prepared, struct {
				key    Key
				item   map[string]types.AttributeValue
				delete bool
			}{key: op.Key, delete: true})
			continue
		}
		item, err := marshalItem(op.Key, op.Entity)
		if err != nil {
			return err
		}
		prepared = append(prepared, struct {
			key    Key
			item   map[string]types.AttributeValue
			delete bool
		}{key: op.Key, item: item})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range prepared {
		if p.delete {
			delete(m.items, p.key)
		} else {
			m.items[p.key] = p.item
		}
	}
	return nil
}

// TransactWrite applies all ops atomically; every condition is checked
// before any write lands.
func (m *MemoryStore) TransactWrite(ctx context.Context, ops []WriteOp) error {
	prepared := make([]map[string]types.AttributeValue, len(ops))
	for i, op := range ops {
		if op.Delete {
			continue
		}
		item, err := marshalItem(op.Key, op.Entity)
		if err != nil {
			return err
		}
		prepared[i] = item
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		if !m.checkCondition(op.Key, op.Cond) {
			return ErrConditionFailed
		}
	}
	for i, op := range ops {
		if op.Delete {
			delete(m.items, op.Key)
		} else {
			m.items[op.Key] = prepared[i]
		}
	}
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (m *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Close releases nothing.
func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored items. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
