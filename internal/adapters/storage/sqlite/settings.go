package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/evanschultz/issuedeck/internal/domain"
)

// GetSetting returns the stored value and whether the key exists.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting stores value under key, replacing any previous value.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// DeleteSettings removes keys. Missing keys are ignored.
func (r *Repository) DeleteSettings(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
			errs = append(errs, fmt.Errorf("delete setting %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// ListSettingKeys lists keys starting with prefix. The match is done in Go
// because '_' is a LIKE wildcard and setting keys use it.
func (r *Repository) ListSettingKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// ReplaceAll clears every entity table and loads ds in one transaction.
func (r *Repository) ReplaceAll(ctx context.Context, ds domain.Dataset) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, t := range entityTables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
			return fmt.Errorf("clear %s: %w", t.name, err)
		}
	}
	for _, p := range ds.Projects {
		if err = insertRow(ctx, tx, projectsTable, p.ID, p, p.Key); err != nil {
			return err
		}
	}
	for _, s := range ds.Sprints {
		if err = insertRow(ctx, tx, sprintsTable, s.ID, s, s.ProjectID); err != nil {
			return err
		}
	}
	for _, v := range ds.Versions {
		if err = insertRow(ctx, tx, versionsTable, v.ID, v, v.ProjectID); err != nil {
			return err
		}
	}
	for _, i := range ds.Issues {
		if err = insertRow(ctx, tx, issuesTable, i.ID, i, i.ProjectID, i.Key); err != nil {
			return err
		}
	}
	for _, n := range ds.Notifications {
		if err = insertRow(ctx, tx, notificationsTable, n.ID, n, n.RecipientID, boolInt(n.Read)); err != nil {
			return err
		}
	}
	for _, rule := range ds.AutomationRules {
		if err = insertRow(ctx, tx, automationRulesTable, rule.ID, rule, rule.ProjectID); err != nil {
			return err
		}
	}
	for _, entry := range ds.AutomationLogs {
		if err = insertRow(ctx, tx, automationLogsTable, entry.ID, entry, entry.RuleID); err != nil {
			return err
		}
	}
	for _, f := range ds.SavedFilters {
		if err = insertRow(ctx, tx, savedFiltersTable, f.ID, f, f.OwnerID); err != nil {
			return err
		}
	}
	for _, v := range ds.ViewHistory {
		if err = upsertRow(ctx, tx, viewHistoryTable, v.ID, v, v.UserID); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// ClearAll empties every entity table, continuing past failures.
func (r *Repository) ClearAll(ctx context.Context) error {
	var errs []error
	for _, t := range entityTables {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}

// Count reports the row count of one entity table.
func (r *Repository) Count(ctx context.Context, name string) (int, error) {
	for _, t := range entityTables {
		if string(t.store) != name {
			continue
		}
		var n int
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(&n); err != nil {
			return 0, fmt.Errorf("count %s: %w", t.name, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unknown table %q", name)
}
