package badgerkv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
)

func settingKey(key string) []byte {
	return []byte("s/" + key)
}

// GetSetting returns the stored value and whether the key exists.
func (r *Repository) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = r.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(settingKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value, ok = string(raw), true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, ok, nil
}

// SetSetting stores value under key, replacing any previous value.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	return r.update(ctx, tables(app.TableSettings), func(txn *badger.Txn) error {
		return txn.Set(settingKey(key), []byte(value))
	})
}

// DeleteSettings removes keys. Missing keys are ignored.
func (r *Repository) DeleteSettings(ctx context.Context, keys ...string) error {
	return r.update(ctx, tables(app.TableSettings), func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(settingKey(key)); err != nil {
				return fmt.Errorf("delete setting %s: %w", key, err)
			}
		}
		return nil
	})
}

// ListSettingKeys lists keys starting with prefix in key order.
func (r *Repository) ListSettingKeys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := r.view(ctx, func(txn *badger.Txn) error {
		for _, key := range keysWithPrefix(txn, settingKey(prefix)) {
			keys = append(keys, string(bytes.TrimPrefix(key, []byte("s/"))))
		}
		return nil
	})
	return keys, err
}

// ReplaceAll clears every entity table and loads ds in one transaction.
func (r *Repository) ReplaceAll(ctx context.Context, ds domain.Dataset) error {
	return r.update(ctx, app.Tables, func(txn *badger.Txn) error {
		for _, table := range app.Tables {
			for _, prefix := range [][]byte{rowPrefix(table), indexTablePrefix(table)} {
				for _, key := range keysWithPrefix(txn, prefix) {
					if err := txn.Delete(key); err != nil {
						return fmt.Errorf("clear %s: %w", table, err)
					}
				}
			}
		}
		return errors.Join(
			putAll(txn, projects, ds.Projects),
			putAll(txn, issues, ds.Issues),
			putAll(txn, sprints, ds.Sprints),
			putAll(txn, versions, ds.Versions),
			putAll(txn, notifications, ds.Notifications),
			putAll(txn, automationRules, ds.AutomationRules),
			putAll(txn, automationLogs, ds.AutomationLogs),
			putAll(txn, savedFilters, ds.SavedFilters),
			putAllUpsert(txn, viewHistory, ds.ViewHistory),
		)
	})
}

func putAll[T any](txn *badger.Txn, c collection[T], rows []T) error {
	for _, row := range rows {
		if err := c.put(txn, row, modeCreate); err != nil {
			return err
		}
	}
	return nil
}

func putAllUpsert[T any](txn *badger.Txn, c collection[T], rows []T) error {
	for _, row := range rows {
		if err := c.put(txn, row, modeUpsert); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll drops every entity table one at a time, continuing past failures.
func (r *Repository) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for _, table := range app.Tables {
		if err := r.db.DropPrefix(rowPrefix(table), indexTablePrefix(table)); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", table, err))
		}
	}
	r.hub.publish(app.Tables...)
	return errors.Join(errs...)
}

// Count reports the row count of one entity table.
func (r *Repository) Count(ctx context.Context, name string) (n int, err error) {
	if !slices.Contains(app.Tables, app.Table(name)) {
		return 0, fmt.Errorf("unknown table %q", name)
	}
	err = r.view(ctx, func(txn *badger.Txn) error {
		n = countPrefix(txn, rowPrefix(app.Table(name)))
		return nil
	})
	return n, err
}
