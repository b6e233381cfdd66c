package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sneakhead/internal/domain/common"
	"sneakhead/internal/infra/realtime"
)

// StoreFS implements realtime.Store on Firestore.
//
// Collections map 1:1 to Firestore collections; document ids are the store keys.
type StoreFS struct {
	Client *firestore.Client
	Log    *zap.Logger
}

func NewStoreFS(client *firestore.Client, log *zap.Logger) *StoreFS {
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreFS{Client: client, Log: log}
}

var errNilClient = errors.New("store_fs: firestore client is nil")

func (s *StoreFS) col(coll string) *firestore.CollectionRef {
	return s.Client.Collection(strings.TrimSpace(coll))
}

func (s *StoreFS) ref(coll, id string) (*firestore.DocumentRef, error) {
	if s == nil || s.Client == nil {
		return nil, errNilClient
	}
	c, d := strings.TrimSpace(coll), strings.TrimSpace(id)
	if c == "" || d == "" {
		return nil, realtime.ErrInvalidKey
	}
	return s.Client.Collection(c).Doc(d), nil
}

func (s *StoreFS) query(coll string, conds []Cond) firestore.Query {
	q := s.col(coll).Query
	for _, c := range conds {
		q = q.Where(c.Field, "==", c.Value)
	}
	return q
}

// Cond is re-exported to keep call sites short.
type Cond = realtime.Cond

func (s *StoreFS) NewKey(coll string) string {
	return s.col(coll).NewDoc().ID
}

func (s *StoreFS) Set(ctx context.Context, coll, id string, data map[string]any) error {
	ref, err := s.ref(coll, id)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, data)
	return err
}

func (s *StoreFS) Update(ctx context.Context, coll, id string, fields map[string]any) error {
	ref, err := s.ref(coll, id)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, toUpdates(fields))
	return mapErr(err)
}

func (s *StoreFS) Remove(ctx context.Context, coll, id string) error {
	ref, err := s.ref(coll, id)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return err
}

func (s *StoreFS) Get(ctx context.Context, coll, id string) (realtime.Doc, error) {
	ref, err := s.ref(coll, id)
	if err != nil {
		return realtime.Doc{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return realtime.Doc{}, mapErr(err)
	}
	return toDoc(snap), nil
}

func (s *StoreFS) Find(ctx context.Context, coll string, conds ...Cond) ([]realtime.Doc, error) {
	if s == nil || s.Client == nil {
		return nil, errNilClient
	}
	it := s.query(coll, conds).Documents(ctx)
	defer it.Stop()

	out := []realtime.Doc{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, toDoc(snap))
	}
	sortDocs(out)
	return out, nil
}

func (s *StoreFS) Watch(ctx context.Context, coll string, fn func(realtime.Snapshot), conds ...Cond) common.Subscription {
	if s == nil || s.Client == nil {
		fn(realtime.Snapshot{Err: errNilClient})
		return common.SubscriptionFunc(func() error { return nil })
	}
	ctx, cancel := context.WithCancel(ctx)
	it := s.query(coll, conds).Snapshots(ctx)

	return s.run(cancel, it.Stop, func() bool {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return false
			}
			s.Log.Warn("[store_fs] watch failed", zap.String("collection", coll), zap.Error(err))
			fn(realtime.Snapshot{Err: err})
			return false
		}
		snaps, err := qs.Documents.GetAll()
		if err != nil {
			fn(realtime.Snapshot{Err: err})
			return true
		}
		docs := make([]realtime.Doc, 0, len(snaps))
		for _, ds := range snaps {
			docs = append(docs, toDoc(ds))
		}
		sortDocs(docs)
		fn(realtime.Snapshot{Docs: docs})
		return true
	})
}

func (s *StoreFS) WatchDoc(ctx context.Context, coll, id string, fn func(realtime.DocSnapshot)) common.Subscription {
	ref, err := s.ref(coll, id)
	if err != nil {
		fn(realtime.DocSnapshot{Err: err})
		return common.SubscriptionFunc(func() error { return nil })
	}
	ctx, cancel := context.WithCancel(ctx)
	it := ref.Snapshots(ctx)

	return s.run(cancel, it.Stop, func() bool {
		snap, err := it.Next()
		switch {
		case err == nil && snap.Exists():
			d := toDoc(snap)
			fn(realtime.DocSnapshot{Doc: &d})
		case err == nil, status.Code(err) == codes.NotFound:
			fn(realtime.DocSnapshot{})
		case ctx.Err() != nil || status.Code(err) == codes.Canceled:
			return false
		default:
			s.Log.Warn("[store_fs] watch doc failed", zap.String("collection", coll), zap.String("id", id), zap.Error(err))
			fn(realtime.DocSnapshot{Err: err})
			return false
		}
		return true
	})
}

// run drives a snapshot iterator on its own goroutine until step returns false
// or the subscription is closed. stop must not run concurrently with Next, so
// only the delivery goroutine calls it; Close cancels and waits.
func (s *StoreFS) run(cancel context.CancelFunc, stop func(), step func() bool) common.Subscription {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()
		for step() {
		}
	}()

	var once sync.Once
	return common.SubscriptionFunc(func() error {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
		return nil
	})
}

func (s *StoreFS) RunTx(ctx context.Context, fn func(ctx context.Context, tx realtime.Tx) error) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &txFS{s: s, tx: tx})
	})
	return mapErr(err)
}

type txFS struct {
	s  *StoreFS
	tx *firestore.Transaction
}

func (t *txFS) Get(coll, id string) (realtime.Doc, error) {
	ref, err := t.s.ref(coll, id)
	if err != nil {
		return realtime.Doc{}, err
	}
	snap, err := t.tx.Get(ref)
	if err != nil {
		return realtime.Doc{}, mapErr(err)
	}
	return toDoc(snap), nil
}

func (t *txFS) Find(coll string, conds ...Cond) ([]realtime.Doc, error) {
	snaps, err := t.tx.Documents(t.s.query(coll, conds)).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]realtime.Doc, 0, len(snaps))
	for _, ds := range snaps {
		out = append(out, toDoc(ds))
	}
	sortDocs(out)
	return out, nil
}

func (t *txFS) Set(coll, id string, data map[string]any) error {
	ref, err := t.s.ref(coll, id)
	if err != nil {
		return err
	}
	return t.tx.Set(ref, data)
}

func (t *txFS) Update(coll, id string, fields map[string]any) error {
	ref, err := t.s.ref(coll, id)
	if err != nil {
		return err
	}
	return t.tx.Update(ref, toUpdates(fields))
}

func (t *txFS) Remove(coll, id string) error {
	ref, err := t.s.ref(coll, id)
	if err != nil {
		return err
	}
	return t.tx.Delete(ref)
}

// ---- helpers ----

func toDoc(snap *firestore.DocumentSnapshot) realtime.Doc {
	return realtime.Doc{ID: snap.Ref.ID, Data: snap.Data()}
}

func toUpdates(fields map[string]any) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ups := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		ups = append(ups, firestore.Update{Path: k, Value: fields[k]})
	}
	return ups
}

func sortDocs(docs []realtime.Doc) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return realtime.ErrNotFound
	}
	return err
}
