// Package bolt stores todos in a single BoltDB bucket keyed by big-endian id.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "todos"

type todoRepository struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

// NewTodoRepository returns a Bolt-backed implementation of TodoRepository.
// The bucket must already exist.
func NewTodoRepository(db *bolt.DB, bucket string) repository.TodoRepository {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &todoRepository{
		db:     db,
		bucket: []byte(bucket),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *todoRepository) GetByID(ctx context.Context, id int64) (*domain.Todo, error) {
	var todo *domain.Todo
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		todo, err = r.get(tx, id)
		return err
	})
	return todo, err
}

func (r *todoRepository) List(ctx context.Context) ([]domain.Todo, error) {
	todos := make([]domain.Todo, 0)
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).ForEach(func(k, v []byte) error {
			var todo domain.Todo
			if err := json.Unmarshal(v, &todo); err != nil {
				return err
			}
			todos = append(todos, todo)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.After(todos[j].CreatedAt)
		}
		return todos[i].ID > todos[j].ID
	})
	return todos, nil
}

func (r *todoRepository) Create(ctx context.Context, title string) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		todo = domain.Todo{ID: int64(seq), Title: title, CreatedAt: r.now()}
		return r.put(b, todo)
	})
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepository) Update(ctx context.Context, id int64, patch domain.TodoPatch) (*domain.Todo, error) {
	var updated domain.Todo
	err := r.db.Update(func(tx *bolt.Tx) error {
		current, err := r.get(tx, id)
		if err != nil {
			return err
		}
		updated = patch.Apply(*current)
		return r.put(tx.Bucket(r.bucket), updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *todoRepository) Delete(ctx context.Context, id int64) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		key := itob(id)
		if b.Get(key) == nil {
			return domain.ErrTodoNotFound
		}
		return b.Delete(key)
	})
}

func (r *todoRepository) Ping(ctx context.Context) error {
	return r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(r.bucket) == nil {
			return bolt.ErrBucketNotFound
		}
		return nil
	})
}

func (r *todoRepository) get(tx *bolt.Tx, id int64) (*domain.Todo, error) {
	if id <= 0 {
		return nil, domain.ErrTodoNotFound
	}
	raw := tx.Bucket(r.bucket).Get(itob(id))
	if raw == nil {
		return nil, domain.ErrTodoNotFound
	}
	var todo domain.Todo
	if err := json.Unmarshal(raw, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepository) put(b *bolt.Bucket, todo domain.Todo) error {
	payload, err := json.Marshal(todo)
	if err != nil {
		return err
	}
	return b.Put(itob(todo.ID), payload)
}

func itob(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}
