/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements conges.Store (agents, leave records, holidays, settings and
  yearly balances) plus ledger.TxRunner on a single database file. The
  whole application state lives here.

KEY TABLES:
  agents:    Agent identity (PPR unique)
  balances:  One row per (agent, fiscal year), status active/expired/merged
  leaves:    Leave records with their per-year deduction breakdown as JSON
  holidays:  Custom non-working days on top of the statutory calendar
  settings:  Key/value pairs (current exercise year)

AMOUNTS AND DATES:
  Day counts are stored as decimal strings, never floats, so half-day
  arithmetic survives the round trip. Leave and holiday dates are stored
  as DATE text (2006-01-02); timestamps as RFC 3339.

TRANSACTIONS:
  WithTx wraps fn in a database transaction; fn receives a store view
  bound to that transaction. A leave insert and its balance writes commit
  or roll back together.

WAL MODE:
  The database is opened with WAL and foreign keys on. ON DELETE CASCADE
  from agents takes leaves and balances with the agent.

USAGE:
  store, err := sqlite.New("./data/conges.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - conges/store.go: Interface definition
  - ledger/types.go: BalanceStore and TxRunner
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/sigrh/conges/calendar"
	"github.com/sigrh/conges/conges"
	"github.com/sigrh/conges/ledger"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = time.RFC3339
)

// Store implements conges.Store and ledger.TxRunner using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ conges.Store = (*Store)(nil)
var _ ledger.TxRunner = (*Store)(nil)
var _ calendar.CustomHolidaySource = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		nom TEXT NOT NULL,
		prenom TEXT NOT NULL,
		ppr TEXT NOT NULL UNIQUE,
		grade TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- One balance row per agent and fiscal year
	CREATE TABLE IF NOT EXISTS balances (
		agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
		year INTEGER NOT NULL,
		remaining TEXT NOT NULL,
		status TEXT NOT NULL,
		UNIQUE(agent_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_agent
		ON balances(agent_id, year);

	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		date_debut TEXT NOT NULL,
		date_fin TEXT NOT NULL,
		days TEXT NOT NULL,
		status TEXT NOT NULL,
		justification TEXT NOT NULL DEFAULT '',
		interim_id TEXT NOT NULL DEFAULT '',
		certificate_path TEXT NOT NULL DEFAULT '',
		allocation_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_agent
		ON leaves(agent_id, date_debut);

	-- Covers the "who is on leave today" dashboard query
	CREATE INDEX IF NOT EXISTS idx_leaves_status_dates
		ON leaves(status, date_debut, date_fin);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		label TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB and *sql.Tx the row helpers need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) Balances(ctx context.Context, agentID string) ([]ledger.YearlyBalance, error) {
	return balancesIn(ctx, s.db, agentID)
}

func balancesIn(ctx context.Context, db dbtx, agentID string) ([]ledger.YearlyBalance, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT agent_id, year, remaining, status FROM balances WHERE agent_id = ? ORDER BY year`,
		agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var out []ledger.YearlyBalance
	for rows.Next() {
		var b ledger.YearlyBalance
		var remaining, status string
		if err := rows.Scan(&b.AgentID, &b.Year, &remaining, &status); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		if b.Remaining, err = decimal.NewFromString(remaining); err != nil {
			return nil, fmt.Errorf("corrupt balance amount %q: %w", remaining, err)
		}
		b.Status = ledger.Status(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpsertBalance(ctx context.Context, b ledger.YearlyBalance) error {
	return upsertBalanceIn(ctx, s.db, b)
}

func upsertBalanceIn(ctx context.Context, db dbtx, b ledger.YearlyBalance) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO balances (agent_id, year, remaining, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent_id, year) DO UPDATE SET
			remaining = excluded.remaining,
			status = excluded.status`,
		b.AgentID, b.Year, b.Remaining.String(), string(b.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}

func (s *Store) DeleteBalance(ctx context.Context, agentID string, year int) error {
	return deleteBalanceIn(ctx, s.db, agentID, year)
}

func deleteBalanceIn(ctx context.Context, db dbtx, agentID string, year int) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM balances WHERE agent_id = ? AND year = ?`, agentID, year)
	if err != nil {
		return fmt.Errorf("failed to delete balance: %w", err)
	}
	return nil
}

// =============================================================================
// AGENTS
// =============================================================================

const agentColumns = `id, nom, prenom, ppr, grade`

func (s *Store) Agent(ctx context.Context, id string) (*conges.Agent, error) {
	return agentIn(ctx, s.db, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
}

func (s *Store) AgentByPPR(ctx context.Context, ppr string) (*conges.Agent, error) {
	return agentIn(ctx, s.db, `SELECT `+agentColumns+` FROM agents WHERE ppr = ?`, ppr)
}

func agentIn(ctx context.Context, db dbtx, query, arg string) (*conges.Agent, error) {
	var a conges.Agent
	err := db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Nom, &a.Prenom, &a.PPR, &a.Grade)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("agent %s: %w", arg, conges.ErrAgentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context, term string) ([]conges.Agent, error) {
	return listAgentsIn(ctx, s.db, term)
}

func listAgentsIn(ctx context.Context, db dbtx, term string) ([]conges.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	var args []any
	if term = strings.TrimSpace(term); term != "" {
		query += ` WHERE lower(nom || ' ' || prenom || ' ' || ppr) LIKE ?`
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	query += ` ORDER BY nom, prenom`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var out []conges.Agent
	for rows.Next() {
		var a conges.Agent
		if err := rows.Scan(&a.ID, &a.Nom, &a.Prenom, &a.PPR, &a.Grade); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SaveAgent(ctx context.Context, a *conges.Agent) error {
	return saveAgentIn(ctx, s.db, a)
}

func saveAgentIn(ctx context.Context, db dbtx, a *conges.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO agents (id, nom, prenom, ppr, grade, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nom = excluded.nom,
			prenom = excluded.prenom,
			ppr = excluded.ppr,
			grade = excluded.grade`,
		a.ID, a.Nom, a.Prenom, a.PPR, a.Grade, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	return deleteAgentIn(ctx, s.db, id)
}

func deleteAgentIn(ctx context.Context, db dbtx, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("agent %s: %w", id, conges.ErrAgentNotFound)
	}
	return nil
}

// =============================================================================
// LEAVE RECORDS
// =============================================================================

const leaveColumns = `id, agent_id, type, date_debut, date_fin, days, status,
	justification, interim_id, certificate_path, allocation_json, created_at`

func (s *Store) Leave(ctx context.Context, id string) (*conges.LeaveRecord, error) {
	return leaveIn(ctx, s.db, id)
}

func leaveIn(ctx context.Context, db dbtx, id string) (*conges.LeaveRecord, error) {
	records, err := queryLeaves(ctx, db,
		`SELECT `+leaveColumns+` FROM leaves WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("leave %s: %w", id, conges.ErrLeaveNotFound)
	}
	return &records[0], nil
}

func (s *Store) LeavesForAgent(ctx context.Context, agentID string) ([]conges.LeaveRecord, error) {
	return queryLeaves(ctx, s.db,
		`SELECT `+leaveColumns+` FROM leaves WHERE agent_id = ? ORDER BY date_debut`, agentID)
}

func (s *Store) AllLeaves(ctx context.Context) ([]conges.LeaveRecord, error) {
	return queryLeaves(ctx, s.db,
		`SELECT `+leaveColumns+` FROM leaves ORDER BY date_debut`)
}

func (s *Store) LeavesCovering(ctx context.Context, date time.Time) ([]conges.LeaveRecord, error) {
	return leavesCoveringIn(ctx, s.db, date)
}

func leavesCoveringIn(ctx context.Context, db dbtx, date time.Time) ([]conges.LeaveRecord, error) {
	day := date.Format(dateFormat)
	return queryLeaves(ctx, db,
		`SELECT `+leaveColumns+` FROM leaves
		 WHERE status = ? AND date_debut <= ? AND date_fin >= ?
		 ORDER BY date_debut`,
		string(conges.LeaveActive), day, day)
}

func queryLeaves(ctx context.Context, db dbtx, query string, args ...any) ([]conges.LeaveRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var out []conges.LeaveRecord
	for rows.Next() {
		var r conges.LeaveRecord
		var typ, start, end, days, status, allocJSON, createdAt string
		if err := rows.Scan(&r.ID, &r.AgentID, &typ, &start, &end, &days, &status,
			&r.Justification, &r.InterimID, &r.CertificatePath, &allocJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan leave: %w", err)
		}
		if r.Type, err = conges.ParseLeaveType(typ); err != nil {
			return nil, err
		}
		if r.Start, err = time.Parse(dateFormat, start); err != nil {
			return nil, fmt.Errorf("corrupt start date %q: %w", start, err)
		}
		if r.End, err = time.Parse(dateFormat, end); err != nil {
			return nil, fmt.Errorf("corrupt end date %q: %w", end, err)
		}
		if r.Days, err = decimal.NewFromString(days); err != nil {
			return nil, fmt.Errorf("corrupt day count %q: %w", days, err)
		}
		r.Status = conges.LeaveStatus(status)
		if err := json.Unmarshal([]byte(allocJSON), &r.Allocation); err != nil {
			return nil, fmt.Errorf("corrupt allocation for leave %s: %w", r.ID, err)
		}
		if r.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt timestamp %q: %w", createdAt, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertLeave(ctx context.Context, r *conges.LeaveRecord) error {
	return insertLeaveIn(ctx, s.db, r)
}

func insertLeaveIn(ctx context.Context, db dbtx, r *conges.LeaveRecord) error {
	allocJSON, err := json.Marshal(r.Allocation)
	if err != nil {
		return fmt.Errorf("failed to marshal allocation: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO leaves (`+leaveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AgentID, r.Type.Code(),
		r.Start.Format(dateFormat), r.End.Format(dateFormat),
		r.Days.String(), string(r.Status),
		r.Justification, r.InterimID, r.CertificatePath,
		string(allocJSON), r.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to insert leave: %w", err)
	}
	return nil
}

func (s *Store) UpdateLeave(ctx context.Context, r *conges.LeaveRecord) error {
	return updateLeaveIn(ctx, s.db, r)
}

func updateLeaveIn(ctx context.Context, db dbtx, r *conges.LeaveRecord) error {
	allocJSON, err := json.Marshal(r.Allocation)
	if err != nil {
		return fmt.Errorf("failed to marshal allocation: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE leaves SET
			type = ?, date_debut = ?, date_fin = ?, days = ?, status = ?,
			justification = ?, interim_id = ?, certificate_path = ?, allocation_json = ?
		WHERE id = ?`,
		r.Type.Code(),
		r.Start.Format(dateFormat), r.End.Format(dateFormat),
		r.Days.String(), string(r.Status),
		r.Justification, r.InterimID, r.CertificatePath, string(allocJSON),
		r.ID)
	if err != nil {
		return fmt.Errorf("failed to update leave: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("leave %s: %w", r.ID, conges.ErrLeaveNotFound)
	}
	return nil
}

func (s *Store) UpdateLeaveStatus(ctx context.Context, id string, status conges.LeaveStatus) error {
	return updateLeaveStatusIn(ctx, s.db, id, status)
}

func updateLeaveStatusIn(ctx context.Context, db dbtx, id string, status conges.LeaveStatus) error {
	res, err := db.ExecContext(ctx,
		`UPDATE leaves SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update leave status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("leave %s: %w", id, conges.ErrLeaveNotFound)
	}
	return nil
}

func (s *Store) DeleteLeave(ctx context.Context, id string) error {
	return deleteLeaveIn(ctx, s.db, id)
}

func deleteLeaveIn(ctx context.Context, db dbtx, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM leaves WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete leave: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("leave %s: %w", id, conges.ErrLeaveNotFound)
	}
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) HolidaysForYear(ctx context.Context, year int) ([]calendar.CustomHoliday, error) {
	return holidaysForYearIn(ctx, s.db, year)
}

func holidaysForYearIn(ctx context.Context, db dbtx, year int) ([]calendar.CustomHoliday, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT date, label FROM holidays WHERE date >= ? AND date <= ? ORDER BY date`,
		fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []calendar.CustomHoliday
	for rows.Next() {
		var date, label string
		if err := rows.Scan(&date, &label); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		d, err := time.Parse(dateFormat, date)
		if err != nil {
			return nil, fmt.Errorf("corrupt holiday date %q: %w", date, err)
		}
		out = append(out, calendar.CustomHoliday{Date: d, Label: label})
	}
	return out, rows.Err()
}

func (s *Store) ListHolidays(ctx context.Context) ([]conges.Holiday, error) {
	return listHolidaysIn(ctx, s.db)
}

func listHolidaysIn(ctx context.Context, db dbtx) ([]conges.Holiday, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, date, label FROM holidays ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var out []conges.Holiday
	for rows.Next() {
		var h conges.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Label); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("corrupt holiday date %q: %w", date, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) AddHoliday(ctx context.Context, date time.Time, label string) (string, error) {
	return addHolidayIn(ctx, s.db, date, label)
}

func addHolidayIn(ctx context.Context, db dbtx, date time.Time, label string) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO holidays (id, date, label) VALUES (?, ?, ?)`,
		id, date.Format(dateFormat), label)
	if err != nil {
		return "", fmt.Errorf("failed to add holiday: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	return deleteHolidayIn(ctx, s.db, id)
}

func deleteHolidayIn(ctx context.Context, db dbtx, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("holiday %s: %w", id, conges.ErrHolidayNotFound)
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	return settingIn(ctx, s.db, key)
}

func settingIn(ctx context.Context, db dbtx, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %s not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return setSettingIn(ctx, s.db, key, value)
}

func setSettingIn(ctx context.Context, db dbtx, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(conges.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// WithBalanceTx satisfies ledger.TxRunner for standalone ledger calls.
func (s *Store) WithBalanceTx(ctx context.Context, fn func(ledger.BalanceStore) error) error {
	return s.WithTx(ctx, func(store conges.Store) error { return fn(store) })
}

// txStore is a conges.Store bound to an open transaction.
type txStore struct {
	tx *sql.Tx
}

var _ conges.Store = (*txStore)(nil)

func (ts *txStore) Balances(ctx context.Context, agentID string) ([]ledger.YearlyBalance, error) {
	return balancesIn(ctx, ts.tx, agentID)
}
func (ts *txStore) UpsertBalance(ctx context.Context, b ledger.YearlyBalance) error {
	return upsertBalanceIn(ctx, ts.tx, b)
}
func (ts *txStore) DeleteBalance(ctx context.Context, agentID string, year int) error {
	return deleteBalanceIn(ctx, ts.tx, agentID, year)
}
func (ts *txStore) Agent(ctx context.Context, id string) (*conges.Agent, error) {
	return agentIn(ctx, ts.tx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
}
func (ts *txStore) AgentByPPR(ctx context.Context, ppr string) (*conges.Agent, error) {
	return agentIn(ctx, ts.tx, `SELECT `+agentColumns+` FROM agents WHERE ppr = ?`, ppr)
}
func (ts *txStore) ListAgents(ctx context.Context, term string) ([]conges.Agent, error) {
	return listAgentsIn(ctx, ts.tx, term)
}
func (ts *txStore) SaveAgent(ctx context.Context, a *conges.Agent) error {
	return saveAgentIn(ctx, ts.tx, a)
}
func (ts *txStore) DeleteAgent(ctx context.Context, id string) error {
	return deleteAgentIn(ctx, ts.tx, id)
}
func (ts *txStore) Leave(ctx context.Context, id string) (*conges.LeaveRecord, error) {
	return leaveIn(ctx, ts.tx, id)
}
func (ts *txStore) LeavesForAgent(ctx context.Context, agentID string) ([]conges.LeaveRecord, error) {
	return queryLeaves(ctx, ts.tx,
		`SELECT `+leaveColumns+` FROM leaves WHERE agent_id = ? ORDER BY date_debut`, agentID)
}
func (ts *txStore) AllLeaves(ctx context.Context) ([]conges.LeaveRecord, error) {
	return queryLeaves(ctx, ts.tx,
		`SELECT `+leaveColumns+` FROM leaves ORDER BY date_debut`)
}
func (ts *txStore) LeavesCovering(ctx context.Context, date time.Time) ([]conges.LeaveRecord, error) {
	return leavesCoveringIn(ctx, ts.tx, date)
}
func (ts *txStore) InsertLeave(ctx context.Context, r *conges.LeaveRecord) error {
	return insertLeaveIn(ctx, ts.tx, r)
}
func (ts *txStore) UpdateLeave(ctx context.Context, r *conges.LeaveRecord) error {
	return updateLeaveIn(ctx, ts.tx, r)
}
func (ts *txStore) UpdateLeaveStatus(ctx context.Context, id string, status conges.LeaveStatus) error {
	return updateLeaveStatusIn(ctx, ts.tx, id, status)
}
func (ts *txStore) DeleteLeave(ctx context.Context, id string) error {
	return deleteLeaveIn(ctx, ts.tx, id)
}
func (ts *txStore) HolidaysForYear(ctx context.Context, year int) ([]calendar.CustomHoliday, error) {
	return holidaysForYearIn(ctx, ts.tx, year)
}
func (ts *txStore) ListHolidays(ctx context.Context) ([]conges.Holiday, error) {
	return listHolidaysIn(ctx, ts.tx)
}
func (ts *txStore) AddHoliday(ctx context.Context, date time.Time, label string) (string, error) {
	return addHolidayIn(ctx, ts.tx, date, label)
}
func (ts *txStore) DeleteHoliday(ctx context.Context, id string) error {
	return deleteHolidayIn(ctx, ts.tx, id)
}
func (ts *txStore) Setting(ctx context.Context, key string) (string, error) {
	return settingIn(ctx, ts.tx, key)
}
func (ts *txStore) SetSetting(ctx context.Context, key, value string) error {
	return setSettingIn(ctx, ts.tx, key, value)
}

// WithTx on a bound store reuses the open transaction: SQLite
// transactions do not nest.
func (ts *txStore) WithTx(_ context.Context, fn func(conges.Store) error) error {
	return fn(ts)
}
