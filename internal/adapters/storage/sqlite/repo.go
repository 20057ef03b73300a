// Package sqlite is the embedded SQL backend. Each entity row is its id, the
// entity serialised as one JSON document, and a few denormalised columns used
// for indexed lookups. Other lookups go through json_extract expression
// indexes. The engine has no change stream, so watches are one-shot.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/evanschultz/issuedeck/internal/app"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	return open(path)
}

// OpenInMemory opens a private in-memory database that lives until Close.
func OpenInMemory() (*Repository, error) {
	return open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
}

func open(dsn string) (*Repository, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SupportsPush reports false: the engine offers no change notifications.
func (r *Repository) SupportsPush() bool { return false }

// Subscribe never calls fn.
func (r *Repository) Subscribe(app.Table, func()) func() { return func() {} }

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_key ON projects(key);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_type ON projects(json_extract(data, '$.type'));`,
		`CREATE INDEX IF NOT EXISTS idx_projects_lead ON projects(json_extract(data, '$.leadId'));`,

		`CREATE TABLE IF NOT EXISTS issues (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			key TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_key ON issues(key);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_sprint ON issues(json_extract(data, '$.sprintId'));`,
		`CREATE INDEX IF NOT EXISTS idx_issues_assignee ON issues(json_extract(data, '$.assigneeId'));`,
		`CREATE INDEX IF NOT EXISTS idx_issues_reporter ON issues(json_extract(data, '$.reporterId'));`,
		`CREATE INDEX IF NOT EXISTS idx_issues_parent ON issues(json_extract(data, '$.parentId'));`,
		`CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(json_extract(data, '$.status'));`,
		`CREATE INDEX IF NOT EXISTS idx_issues_type ON issues(json_extract(data, '$.type'));`,

		`CREATE TABLE IF NOT EXISTS sprints (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sprints_status ON sprints(json_extract(data, '$.status'));`,

		`CREATE TABLE IF NOT EXISTS versions (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_versions_project ON versions(project_id);`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			recipient_id TEXT NOT NULL DEFAULT '',
			read INTEGER NOT NULL DEFAULT 0,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, read);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(json_extract(data, '$.createdAt'));`,

		`CREATE TABLE IF NOT EXISTS automation_rules (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_automation_rules_project ON automation_rules(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_automation_rules_trigger ON automation_rules(json_extract(data, '$.trigger'));`,
		`CREATE INDEX IF NOT EXISTS idx_automation_rules_enabled ON automation_rules(json_extract(data, '$.enabled'));`,

		`CREATE TABLE IF NOT EXISTS automation_logs (
			id TEXT PRIMARY KEY,
			rule_id TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_automation_logs_rule ON automation_logs(rule_id);`,
		`CREATE INDEX IF NOT EXISTS idx_automation_logs_executed ON automation_logs(json_extract(data, '$.executedAt'));`,

		`CREATE TABLE IF NOT EXISTS saved_filters (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS view_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_view_history_user ON view_history(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_view_history_viewed ON view_history(json_extract(data, '$.viewedAt'));`,
		`CREATE INDEX IF NOT EXISTS idx_view_history_user_issue ON view_history(user_id, json_extract(data, '$.issueId'));`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// table describes one JSON-row table: the id column, the data column and the
// denormalised lookup columns written alongside them.
type table struct {
	name    string
	store   app.Table
	columns []string
}

var (
	projectsTable        = table{name: "projects", store: app.TableProjects, columns: []string{"key"}}
	issuesTable          = table{name: "issues", store: app.TableIssues, columns: []string{"project_id", "key"}}
	sprintsTable         = table{name: "sprints", store: app.TableSprints, columns: []string{"project_id"}}
	versionsTable        = table{name: "versions", store: app.TableVersions, columns: []string{"project_id"}}
	notificationsTable   = table{name: "notifications", store: app.TableNotifications, columns: []string{"recipient_id", "read"}}
	automationRulesTable = table{name: "automation_rules", store: app.TableAutomationRules, columns: []string{"project_id"}}
	automationLogsTable  = table{name: "automation_logs", store: app.TableAutomationLogs, columns: []string{"rule_id"}}
	savedFiltersTable    = table{name: "saved_filters", store: app.TableSavedFilters, columns: []string{"owner_id"}}
	viewHistoryTable     = table{name: "view_history", store: app.TableViewHistory, columns: []string{"user_id"}}
)

// entityTables lists every entity table in child-before-parent order.
var entityTables = []table{
	automationLogsTable,
	automationRulesTable,
	viewHistoryTable,
	notificationsTable,
	issuesTable,
	sprintsTable,
	versionsTable,
	savedFiltersTable,
	projectsTable,
}

func (t table) insertSQL() string {
	cols := append([]string{"id", "data"}, t.columns...)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s(%s) VALUES (%s)", t.name, strings.Join(cols, ", "), marks)
}

func (t table) upsertSQL() string {
	sets := []string{"data = excluded.data"}
	for _, c := range t.columns {
		sets = append(sets, c+" = excluded."+c)
	}
	return t.insertSQL() + " ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func (t table) updateSQL() string {
	sets := []string{"data = ?"}
	for _, c := range t.columns {
		sets = append(sets, c+" = ?")
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.name, strings.Join(sets, ", "))
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// queryer represents the read contract shared by DB and Tx.
type queryer interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func encode(t table, id string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s %s: %w", t.name, id, err)
	}
	return string(data), nil
}

func insertRow(ctx context.Context, exec execerContext, t table, id string, v any, extra ...any) error {
	data, err := encode(t, id, v)
	if err != nil {
		return err
	}
	args := append([]any{id, data}, extra...)
	if _, err := exec.ExecContext(ctx, t.insertSQL(), args...); err != nil {
		return fmt.Errorf("insert %s %s: %w", t.name, id, err)
	}
	return nil
}

func upsertRow(ctx context.Context, exec execerContext, t table, id string, v any, extra ...any) error {
	data, err := encode(t, id, v)
	if err != nil {
		return err
	}
	args := append([]any{id, data}, extra...)
	if _, err := exec.ExecContext(ctx, t.upsertSQL(), args...); err != nil {
		return fmt.Errorf("upsert %s %s: %w", t.name, id, err)
	}
	return nil
}

func updateRow(ctx context.Context, exec execerContext, t table, id string, v any, extra ...any) error {
	data, err := encode(t, id, v)
	if err != nil {
		return err
	}
	args := append([]any{data}, extra...)
	args = append(args, id)
	res, err := exec.ExecContext(ctx, t.updateSQL(), args...)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", t.name, id, err)
	}
	if err := translateNoRows(res); err != nil {
		return fmt.Errorf("update %s %s: %w", t.name, id, err)
	}
	return nil
}

func deleteRow(ctx context.Context, exec execerContext, t table, id string) error {
	res, err := exec.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", t.name, id, err)
	}
	if err := translateNoRows(res); err != nil {
		return fmt.Errorf("delete %s %s: %w", t.name, id, err)
	}
	return nil
}

// getRow decodes the single row selected by where.
func getRow[T any](ctx context.Context, q queryer, t table, where string, args ...any) (T, error) {
	var (
		out  T
		data string
	)
	err := q.QueryRowContext(ctx, "SELECT data FROM "+t.name+" WHERE "+where+" ORDER BY id LIMIT 1", args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("%s %v: %w", t.name, args, app.ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return out, fmt.Errorf("decode %s row: %w", t.name, err)
	}
	return out, nil
}

// listRows decodes every row matching the optional where clauses.
func listRows[T any](ctx context.Context, q queryer, t table, where []string, args ...any) ([]T, error) {
	query := "SELECT data FROM " + t.name
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", t.name, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
