package realtime

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"sneakhead/internal/domain/common"
)

// Op names a store operation for call counting and failure injection.
type Op string

const (
	OpSet    Op = "set"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpGet    Op = "get"
	OpFind   Op = "find"
	OpTx     Op = "tx"
)

// MemoryStore is an in-process Store. Keys are generated in creation order,
// watchers are notified after every committed write.
type MemoryStore struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	data  map[string]map[string]map[string]any
	subs  map[uint64]*watch
	fail  map[Op]error
	calls map[Op]int

	seq    atomic.Uint64
	subSeq uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  map[string]map[string]map[string]any{},
		subs:  map[uint64]*watch{},
		fail:  map[Op]error{},
		calls: map[Op]int{},
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (s *MemoryStore) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls reports how many times op was invoked, including failed calls.
func (s *MemoryStore) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Len returns the number of documents in coll.
func (s *MemoryStore) Len(coll string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[coll])
}

func (s *MemoryStore) NewKey(coll string) string {
	return fmt.Sprintf("k%015d", s.seq.Add(1))
}

func (s *MemoryStore) enter(op Op) error {
	s.calls[op]++
	return s.fail[op]
}

func (s *MemoryStore) Set(ctx context.Context, coll, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSet); err != nil {
		return err
	}
	if err := s.setLocked(coll, id, data); err != nil {
		return err
	}
	s.notifyLocked(coll)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, coll, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpdate); err != nil {
		return err
	}
	if err := s.updateLocked(coll, id, fields); err != nil {
		return err
	}
	s.notifyLocked(coll)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, coll, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpRemove); err != nil {
		return err
	}
	s.removeLocked(coll, id)
	s.notifyLocked(coll)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, coll, id string) (Doc, error) {
	if err := ctx.Err(); err != nil {
		return Doc{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGet); err != nil {
		return Doc{}, err
	}
	return s.getLocked(coll, id)
}

func (s *MemoryStore) Find(ctx context.Context, coll string, conds ...Cond) ([]Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpFind); err != nil {
		return nil, err
	}
	return s.findLocked(coll, conds), nil
}

func (s *MemoryStore) setLocked(coll, id string, data map[string]any) error {
	if strings.TrimSpace(coll) == "" || strings.TrimSpace(id) == "" {
		return ErrInvalidKey
	}
	c := s.data[coll]
	if c == nil {
		c = map[string]map[string]any{}
		s.data[coll] = c
	}
	c[id] = copyFields(data)
	return nil
}

func (s *MemoryStore) updateLocked(coll, id string, fields map[string]any) error {
	doc, ok := s.data[coll][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (s *MemoryStore) removeLocked(coll, id string) {
	delete(s.data[coll], id)
}

func (s *MemoryStore) getLocked(coll, id string) (Doc, error) {
	doc, ok := s.data[coll][id]
	if !ok {
		return Doc{}, ErrNotFound
	}
	return Doc{ID: id, Data: copyFields(doc)}, nil
}

func (s *MemoryStore) findLocked(coll string, conds []Cond) []Doc {
	out := []Doc{}
	for id, doc := range s.data[coll] {
		if matches(doc, conds) {
			out = append(out, Doc{ID: id, Data: copyFields(doc)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matches(doc map[string]any, conds []Cond) bool {
	for _, c := range conds {
		if !equalValues(doc[c.Field], c.Value) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func copyFields(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ---- watchers ----

type watch struct {
	coll   string
	notify chan struct{}
}

func (s *MemoryStore) notifyLocked(coll string) {
	for _, w := range s.subs {
		if w.coll != coll {
			continue
		}
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// subscribe starts a delivery goroutine. Notifications coalesce, so a slow
// consumer sees the latest state rather than every intermediate one.
func (s *MemoryStore) subscribe(ctx context.Context, coll string, deliver func()) common.Subscription {
	w := &watch{coll: coll, notify: make(chan struct{}, 1)}
	w.notify <- struct{}{}

	s.mu.Lock()
	s.subSeq++
	key := s.subSeq
	s.subs[key] = w
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
				if ctx.Err() != nil {
					return
				}
				deliver()
			}
		}
	}()

	var once sync.Once
	return common.SubscriptionFunc(func() error {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, key)
			s.mu.Unlock()
			cancel()
			wg.Wait()
		})
		return nil
	})
}

func (s *MemoryStore) Watch(ctx context.Context, coll string, fn func(Snapshot), conds ...Cond) common.Subscription {
	return s.subscribe(ctx, coll, func() {
		s.mu.Lock()
		err := s.enter(OpFind)
		var docs []Doc
		if err == nil {
			docs = s.findLocked(coll, conds)
		}
		s.mu.Unlock()
		fn(Snapshot{Docs: docs, Err: err})
	})
}

func (s *MemoryStore) WatchDoc(ctx context.Context, coll, id string, fn func(DocSnapshot)) common.Subscription {
	return s.subscribe(ctx, coll, func() {
		s.mu.Lock()
		err := s.enter(OpGet)
		var snap DocSnapshot
		if err != nil {
			snap.Err = err
		} else if doc, gerr := s.getLocked(coll, id); gerr == nil {
			snap.Doc = &doc
		}
		s.mu.Unlock()
		fn(snap)
	})
}

// ---- transactions ----

type memWrite struct {
	op     Op
	coll   string
	id     string
	fields map[string]any
}

type memTx struct {
	s      *MemoryStore
	writes []memWrite
}

// RunTx serialises transactions; reads observe committed state and writes are
// applied together when fn returns nil.
func (s *MemoryStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	err := s.enter(OpTx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	touched := map[string]bool{}
	for _, w := range tx.writes {
		if _, ok := s.data[w.coll][w.id]; !ok && w.op == OpUpdate {
			return ErrNotFound
		}
	}
	for _, w := range tx.writes {
		switch w.op {
		case OpSet:
			_ = s.setLocked(w.coll, w.id, w.fields)
		case OpUpdate:
			_ = s.updateLocked(w.coll, w.id, w.fields)
		case OpRemove:
			s.removeLocked(w.coll, w.id)
		}
		s.calls[w.op]++
		touched[w.coll] = true
	}
	for coll := range touched {
		s.notifyLocked(coll)
	}
	return nil
}

func (t *memTx) Get(coll, id string) (Doc, error) {
	if len(t.writes) > 0 {
		return Doc{}, ErrReadAfterWrite
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.getLocked(coll, id)
}

func (t *memTx) Find(coll string, conds ...Cond) ([]Doc, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.findLocked(coll, conds), nil
}

func (t *memTx) Set(coll, id string, data map[string]any) error {
	if strings.TrimSpace(coll) == "" || strings.TrimSpace(id) == "" {
		return ErrInvalidKey
	}
	t.writes = append(t.writes, memWrite{op: OpSet, coll: coll, id: id, fields: copyFields(data)})
	return nil
}

func (t *memTx) Update(coll, id string, fields map[string]any) error {
	t.writes = append(t.writes, memWrite{op: OpUpdate, coll: coll, id: id, fields: copyFields(fields)})
	return nil
}

func (t *memTx) Remove(coll, id string) error {
	t.writes = append(t.writes, memWrite{op: OpRemove, coll: coll, id: id})
	return nil
}
