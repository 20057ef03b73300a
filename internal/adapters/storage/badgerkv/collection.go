package badgerkv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/evanschultz/issuedeck/internal/app"
)

// index is a named secondary index. Empty values are not indexed.
type index[T any] struct {
	name  string
	value func(T) string
}

// collection binds one entity type to its key range and indexes.
type collection[T any] struct {
	table   app.Table
	id      func(T) string
	indexes []index[T]
}

// writeMode selects how put treats an existing row.
type writeMode int

const (
	modeCreate writeMode = iota
	modeUpdate
	modeUpsert
)

func rowPrefix(table app.Table) []byte {
	return []byte("t/" + string(table) + "/")
}

func rowKey(table app.Table, id string) []byte {
	return append(rowPrefix(table), id...)
}

func indexTablePrefix(table app.Table) []byte {
	return []byte("i/" + string(table) + "/")
}

func indexValuePrefix(table app.Table, name, value string) []byte {
	key := append(indexTablePrefix(table), name+"/"+value...)
	return append(key, 0)
}

func (c collection[T]) indexKeys(v T) [][]byte {
	id := c.id(v)
	keys := make([][]byte, 0, len(c.indexes))
	for _, idx := range c.indexes {
		value := idx.value(v)
		if value == "" {
			continue
		}
		keys = append(keys, append(indexValuePrefix(c.table, idx.name, value), id...))
	}
	return keys
}

// load reads and decodes the row with id.
func (c collection[T]) load(txn *badger.Txn, id string) (T, error) {
	var out T
	item, err := txn.Get(rowKey(c.table, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return out, fmt.Errorf("%s %s: %w", c.table, id, app.ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	})
	if err != nil {
		return out, fmt.Errorf("decode %s %s: %w", c.table, id, err)
	}
	return out, nil
}

// put writes v and keeps its index entries in step with the stored row.
func (c collection[T]) put(txn *badger.Txn, v T, mode writeMode) error {
	id := c.id(v)
	old, err := c.load(txn, id)
	exists := err == nil
	switch {
	case err != nil && !errors.Is(err, app.ErrNotFound):
		return err
	case exists && mode == modeCreate:
		return fmt.Errorf("%s %s already exists", c.table, id)
	case !exists && mode == modeUpdate:
		return err
	}
	if exists {
		for _, key := range c.indexKeys(old) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", c.table, id, err)
	}
	if err := txn.Set(rowKey(c.table, id), data); err != nil {
		return err
	}
	for _, key := range c.indexKeys(v) {
		if err := txn.Set(key, nil); err != nil {
			return err
		}
	}
	return nil
}

// remove deletes the row with id and its index entries.
func (c collection[T]) remove(txn *badger.Txn, id string) error {
	old, err := c.load(txn, id)
	if err != nil {
		return err
	}
	for _, key := range c.indexKeys(old) {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return txn.Delete(rowKey(c.table, id))
}

// all decodes every row in key order.
func (c collection[T]) all(txn *badger.Txn) ([]T, error) {
	prefix := rowPrefix(c.table)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	out := []T{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return nil, fmt.Errorf("decode %s row: %w", c.table, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// lookup returns the ids indexed under name = value.
func (c collection[T]) lookup(txn *badger.Txn, name, value string) []string {
	prefix := indexValuePrefix(c.table, name, value)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		ids = append(ids, string(bytes.TrimPrefix(key, prefix)))
	}
	return ids
}

// by decodes every row indexed under name = value.
func (c collection[T]) by(txn *badger.Txn, name, value string) ([]T, error) {
	out := []T{}
	for _, id := range c.lookup(txn, name, value) {
		v, err := c.load(txn, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func countPrefix(txn *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n
}

// keysWithPrefix copies every key under prefix.
func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}
