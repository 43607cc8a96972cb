// Package memory is an in-process docstore.Store. Documents are kept as JSON so
// callers see the same value types a networked store would return.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func New() *Store {
	return &Store{collections: make(map[string]map[string][]byte)}
}

// Ping reports only context cancellation; the store itself is always available.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, docstore.NewError("get", docstore.CodeOf(err), err)
	}
	s.mu.RLock()
	raw, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return decode(raw)
}

func (s *Store) Set(ctx context.Context, collection, id string, doc docstore.Document) error {
	if err := ctx.Err(); err != nil {
		return docstore.NewError("set", docstore.CodeOf(err), err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return docstore.NewError("set", docstore.CodeInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string][]byte)
		s.collections[collection] = c
	}
	c[id] = raw
	return nil
}

func (s *Store) SetIf(ctx context.Context, collection, id string, doc docstore.Document, expect docstore.Filter) error {
	if err := ctx.Err(); err != nil {
		return docstore.NewError("set_if", docstore.CodeOf(err), err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return docstore.NewError("set_if", docstore.CodeInvalidArgument, err)
	}
	filters, err := normalizeFilters([]docstore.Filter{expect})
	if err != nil {
		return docstore.NewError("set_if", docstore.CodeInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.collections[collection][id]
	if !ok {
		return docstore.ErrPreconditionFailed
	}
	stored, err := decode(current)
	if err != nil {
		return err
	}
	if !matches(stored, filters) {
		return docstore.ErrPreconditionFailed
	}
	s.collections[collection][id] = raw
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, docstore.NewError("query", docstore.CodeOf(err), err)
	}
	filters, err := normalizeFilters(q.Filters)
	if err != nil {
		return nil, docstore.NewError("query", docstore.CodeInvalidArgument, err)
	}

	s.mu.RLock()
	var out []docstore.Snapshot
	for id, raw := range s.collections[collection] {
		doc, err := decode(raw)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if matches(doc, filters) {
			out = append(out, docstore.Snapshot{ID: id, Data: doc})
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b docstore.Snapshot) int {
		if q.OrderBy != "" {
			if c := compareValues(a.Data[q.OrderBy], b.Data[q.OrderBy]); c != 0 {
				if q.Descending {
					return -c
				}
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func decode(raw []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, docstore.NewError("decode", docstore.CodeInternal, err)
	}
	return doc, nil
}

// normalizeFilters passes filter values through JSON so they compare equal to
// decoded document values.
func normalizeFilters(filters []docstore.Filter) ([]docstore.Filter, error) {
	out := make([]docstore.Filter, 0, len(filters))
	for _, f := range filters {
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		out = append(out, docstore.Filter{Field: f.Field, Value: v})
	}
	return out, nil
}

func matches(doc docstore.Document, filters []docstore.Filter) bool {
	for _, f := range filters {
		if !reflect.DeepEqual(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return cmp.Compare(av, bv)
	case float64:
		bv, _ := b.(float64)
		return cmp.Compare(av, bv)
	case bool:
		bv, _ := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case nil:
		if b == nil {
			return 0
		}
		return -1
	default:
		return 0
	}
}
