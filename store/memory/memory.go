// Package memory provides an in-memory Store for tests and development.
// Transactions are simulated with a snapshot restored on error, which is
// enough to exercise the all-or-nothing contracts of the engine.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigrh/conges/calendar"
	"github.com/sigrh/conges/conges"
	"github.com/sigrh/conges/ledger"
)

type Memory struct {
	mu       sync.RWMutex
	agents   map[string]conges.Agent
	balances map[string]map[int]ledger.YearlyBalance
	leaves   map[string]conges.LeaveRecord
	holidays map[string]conges.Holiday
	settings map[string]string
}

func New() *Memory {
	return &Memory{
		agents:   make(map[string]conges.Agent),
		balances: make(map[string]map[int]ledger.YearlyBalance),
		leaves:   make(map[string]conges.LeaveRecord),
		holidays: make(map[string]conges.Holiday),
		settings: make(map[string]string),
	}
}

var _ conges.Store = (*Memory)(nil)
var _ ledger.TxRunner = (*Memory)(nil)
var _ calendar.CustomHolidaySource = (*Memory)(nil)

// =============================================================================
// BALANCES
// =============================================================================

func (m *Memory) Balances(_ context.Context, agentID string) ([]ledger.YearlyBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balancesLocked(agentID), nil
}

func (m *Memory) balancesLocked(agentID string) []ledger.YearlyBalance {
	rows := make([]ledger.YearlyBalance, 0, len(m.balances[agentID]))
	for _, b := range m.balances[agentID] {
		rows = append(rows, b)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
	return rows
}

func (m *Memory) UpsertBalance(_ context.Context, b ledger.YearlyBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertBalanceLocked(b)
	return nil
}

func (m *Memory) upsertBalanceLocked(b ledger.YearlyBalance) {
	if m.balances[b.AgentID] == nil {
		m.balances[b.AgentID] = make(map[int]ledger.YearlyBalance)
	}
	m.balances[b.AgentID][b.Year] = b
}

func (m *Memory) DeleteBalance(_ context.Context, agentID string, year int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.balances[agentID], year)
	return nil
}

// =============================================================================
// AGENTS
// =============================================================================

func (m *Memory) Agent(_ context.Context, id string) (*conges.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agentLocked(id)
}

func (m *Memory) agentLocked(id string) (*conges.Agent, error) {
	a, ok := m.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, conges.ErrAgentNotFound)
	}
	return &a, nil
}

func (m *Memory) AgentByPPR(_ context.Context, ppr string) (*conges.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agentByPPRLocked(ppr)
}

func (m *Memory) agentByPPRLocked(ppr string) (*conges.Agent, error) {
	for _, a := range m.agents {
		if a.PPR == ppr {
			a := a
			return &a, nil
		}
	}
	return nil, fmt.Errorf("ppr %s: %w", ppr, conges.ErrAgentNotFound)
}

func (m *Memory) ListAgents(_ context.Context, term string) ([]conges.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAgentsLocked(term), nil
}

func (m *Memory) listAgentsLocked(term string) []conges.Agent {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []conges.Agent
	for _, a := range m.agents {
		if term != "" {
			hay := strings.ToLower(a.Nom + " " + a.Prenom + " " + a.PPR)
			if !strings.Contains(hay, term) {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nom != out[j].Nom {
			return out[i].Nom < out[j].Nom
		}
		return out[i].Prenom < out[j].Prenom
	})
	return out
}

func (m *Memory) SaveAgent(_ context.Context, a *conges.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAgentLocked(a)
}

func (m *Memory) saveAgentLocked(a *conges.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.agents[a.ID] = *a
	return nil
}

func (m *Memory) DeleteAgent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteAgentLocked(id)
}

// deleteAgentLocked cascades to the agent's leaves and balances,
// mirroring the SQLite foreign keys.
func (m *Memory) deleteAgentLocked(id string) error {
	if _, ok := m.agents[id]; !ok {
		return fmt.Errorf("agent %s: %w", id, conges.ErrAgentNotFound)
	}
	delete(m.agents, id)
	delete(m.balances, id)
	for leaveID, r := range m.leaves {
		if r.AgentID == id {
			delete(m.leaves, leaveID)
		}
	}
	return nil
}

// =============================================================================
// LEAVE RECORDS
// =============================================================================

func (m *Memory) Leave(_ context.Context, id string) (*conges.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.leaveLocked(id)
}

func (m *Memory) leaveLocked(id string) (*conges.LeaveRecord, error) {
	r, ok := m.leaves[id]
	if !ok {
		return nil, fmt.Errorf("leave %s: %w", id, conges.ErrLeaveNotFound)
	}
	r.Allocation = copyAllocation(r.Allocation)
	return &r, nil
}

func (m *Memory) LeavesForAgent(_ context.Context, agentID string) ([]conges.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []conges.LeaveRecord
	for _, r := range m.leaves {
		if r.AgentID == agentID {
			out = append(out, r)
		}
	}
	sortLeaves(out)
	return out, nil
}

func (m *Memory) AllLeaves(_ context.Context) ([]conges.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]conges.LeaveRecord, 0, len(m.leaves))
	for _, r := range m.leaves {
		out = append(out, r)
	}
	sortLeaves(out)
	return out, nil
}

func (m *Memory) LeavesCovering(_ context.Context, date time.Time) ([]conges.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []conges.LeaveRecord
	for _, r := range m.leaves {
		if r.Status == conges.LeaveActive && r.Covers(date) {
			out = append(out, r)
		}
	}
	sortLeaves(out)
	return out, nil
}

func (m *Memory) InsertLeave(_ context.Context, r *conges.LeaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLeaveLocked(r)
}

func (m *Memory) insertLeaveLocked(r *conges.LeaveRecord) error {
	stored := *r
	stored.Allocation = copyAllocation(r.Allocation)
	m.leaves[r.ID] = stored
	return nil
}

func (m *Memory) UpdateLeave(_ context.Context, r *conges.LeaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLeaveLocked(r)
}

func (m *Memory) updateLeaveLocked(r *conges.LeaveRecord) error {
	if _, ok := m.leaves[r.ID]; !ok {
		return fmt.Errorf("leave %s: %w", r.ID, conges.ErrLeaveNotFound)
	}
	return m.insertLeaveLocked(r)
}

func (m *Memory) UpdateLeaveStatus(_ context.Context, id string, status conges.LeaveStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLeaveStatusLocked(id, status)
}

func (m *Memory) updateLeaveStatusLocked(id string, status conges.LeaveStatus) error {
	r, ok := m.leaves[id]
	if !ok {
		return fmt.Errorf("leave %s: %w", id, conges.ErrLeaveNotFound)
	}
	r.Status = status
	m.leaves[id] = r
	return nil
}

func (m *Memory) DeleteLeave(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLeaveLocked(id)
}

func (m *Memory) deleteLeaveLocked(id string) error {
	if _, ok := m.leaves[id]; !ok {
		return fmt.Errorf("leave %s: %w", id, conges.ErrLeaveNotFound)
	}
	delete(m.leaves, id)
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) HolidaysForYear(_ context.Context, year int) ([]calendar.CustomHoliday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []calendar.CustomHoliday
	for _, h := range m.holidays {
		if h.Date.Year() == year {
			out = append(out, calendar.CustomHoliday{Date: h.Date, Label: h.Label})
		}
	}
	return out, nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]conges.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]conges.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) AddHoliday(_ context.Context, date time.Time, label string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addHolidayLocked(date, label)
}

func (m *Memory) addHolidayLocked(date time.Time, label string) (string, error) {
	id := uuid.NewString()
	m.holidays[id] = conges.Holiday{ID: id, Date: date, Label: label}
	return id, nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return fmt.Errorf("holiday %s: %w", id, conges.ErrHolidayNotFound)
	}
	delete(m.holidays, id)
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) Setting(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	if !ok {
		return "", fmt.Errorf("setting %s not found", key)
	}
	return v, nil
}

func (m *Memory) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// =============================================================================
// TRANSACTIONS - snapshot and restore
// =============================================================================

// WithTx runs fn against an unlocked view under the store mutex,
// restoring the pre-call snapshot when fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(conges.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked()
	if err := fn(&txView{parent: m}); err != nil {
		m.restoreLocked(snap)
		return err
	}
	return nil
}

// WithBalanceTx satisfies ledger.TxRunner for standalone ledger calls.
func (m *Memory) WithBalanceTx(ctx context.Context, fn func(ledger.BalanceStore) error) error {
	return m.WithTx(ctx, func(s conges.Store) error { return fn(s) })
}

type snapshot struct {
	agents   map[string]conges.Agent
	balances map[string]map[int]ledger.YearlyBalance
	leaves   map[string]conges.LeaveRecord
	holidays map[string]conges.Holiday
	settings map[string]string
}

func (m *Memory) snapshotLocked() snapshot {
	s := snapshot{
		agents:   make(map[string]conges.Agent, len(m.agents)),
		balances: make(map[string]map[int]ledger.YearlyBalance, len(m.balances)),
		leaves:   make(map[string]conges.LeaveRecord, len(m.leaves)),
		holidays: make(map[string]conges.Holiday, len(m.holidays)),
		settings: make(map[string]string, len(m.settings)),
	}
	for k, v := range m.agents {
		s.agents[k] = v
	}
	for agentID, years := range m.balances {
		cp := make(map[int]ledger.YearlyBalance, len(years))
		for y, b := range years {
			cp[y] = b
		}
		s.balances[agentID] = cp
	}
	for k, v := range m.leaves {
		v.Allocation = copyAllocation(v.Allocation)
		s.leaves[k] = v
	}
	for k, v := range m.holidays {
		s.holidays[k] = v
	}
	for k, v := range m.settings {
		s.settings[k] = v
	}
	return s
}

func (m *Memory) restoreLocked(s snapshot) {
	m.agents = s.agents
	m.balances = s.balances
	m.leaves = s.leaves
	m.holidays = s.holidays
	m.settings = s.settings
}

// txView delegates to the parent's unlocked methods; the parent mutex is
// already held for the duration of WithTx.
type txView struct {
	parent *Memory
}

var _ conges.Store = (*txView)(nil)

func (v *txView) Balances(_ context.Context, agentID string) ([]ledger.YearlyBalance, error) {
	return v.parent.balancesLocked(agentID), nil
}
func (v *txView) UpsertBalance(_ context.Context, b ledger.YearlyBalance) error {
	v.parent.upsertBalanceLocked(b)
	return nil
}
func (v *txView) DeleteBalance(_ context.Context, agentID string, year int) error {
	delete(v.parent.balances[agentID], year)
	return nil
}
func (v *txView) Agent(_ context.Context, id string) (*conges.Agent, error) {
	return v.parent.agentLocked(id)
}
func (v *txView) AgentByPPR(_ context.Context, ppr string) (*conges.Agent, error) {
	return v.parent.agentByPPRLocked(ppr)
}
func (v *txView) ListAgents(_ context.Context, term string) ([]conges.Agent, error) {
	return v.parent.listAgentsLocked(term), nil
}
func (v *txView) SaveAgent(_ context.Context, a *conges.Agent) error {
	return v.parent.saveAgentLocked(a)
}
func (v *txView) DeleteAgent(_ context.Context, id string) error {
	return v.parent.deleteAgentLocked(id)
}
func (v *txView) Leave(_ context.Context, id string) (*conges.LeaveRecord, error) {
	return v.parent.leaveLocked(id)
}
func (v *txView) LeavesForAgent(ctx context.Context, agentID string) ([]conges.LeaveRecord, error) {
	var out []conges.LeaveRecord
	for _, r := range v.parent.leaves {
		if r.AgentID == agentID {
			out = append(out, r)
		}
	}
	sortLeaves(out)
	return out, nil
}
func (v *txView) AllLeaves(ctx context.Context) ([]conges.LeaveRecord, error) {
	out := make([]conges.LeaveRecord, 0, len(v.parent.leaves))
	for _, r := range v.parent.leaves {
		out = append(out, r)
	}
	sortLeaves(out)
	return out, nil
}
func (v *txView) LeavesCovering(ctx context.Context, date time.Time) ([]conges.LeaveRecord, error) {
	var out []conges.LeaveRecord
	for _, r := range v.parent.leaves {
		if r.Status == conges.LeaveActive && r.Covers(date) {
			out = append(out, r)
		}
	}
	sortLeaves(out)
	return out, nil
}
func (v *txView) InsertLeave(_ context.Context, r *conges.LeaveRecord) error {
	return v.parent.insertLeaveLocked(r)
}
func (v *txView) UpdateLeave(_ context.Context, r *conges.LeaveRecord) error {
	return v.parent.updateLeaveLocked(r)
}
func (v *txView) UpdateLeaveStatus(_ context.Context, id string, status conges.LeaveStatus) error {
	return v.parent.updateLeaveStatusLocked(id, status)
}
func (v *txView) DeleteLeave(_ context.Context, id string) error {
	return v.parent.deleteLeaveLocked(id)
}
func (v *txView) HolidaysForYear(_ context.Context, year int) ([]calendar.CustomHoliday, error) {
	var out []calendar.CustomHoliday
	for _, h := range v.parent.holidays {
		if h.Date.Year() == year {
			out = append(out, calendar.CustomHoliday{Date: h.Date, Label: h.Label})
		}
	}
	return out, nil
}
func (v *txView) ListHolidays(ctx context.Context) ([]conges.Holiday, error) {
	out := make([]conges.Holiday, 0, len(v.parent.holidays))
	for _, h := range v.parent.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
func (v *txView) AddHoliday(_ context.Context, date time.Time, label string) (string, error) {
	return v.parent.addHolidayLocked(date, label)
}
func (v *txView) DeleteHoliday(_ context.Context, id string) error {
	if _, ok := v.parent.holidays[id]; !ok {
		return fmt.Errorf("holiday %s: %w", id, conges.ErrHolidayNotFound)
	}
	delete(v.parent.holidays, id)
	return nil
}
func (v *txView) Setting(_ context.Context, key string) (string, error) {
	val, ok := v.parent.settings[key]
	if !ok {
		return "", fmt.Errorf("setting %s not found", key)
	}
	return val, nil
}
func (v *txView) SetSetting(_ context.Context, key, value string) error {
	v.parent.settings[key] = value
	return nil
}

// WithTx on a view runs fn against the same view: SQLite transactions do
// not nest, and neither do these.
func (v *txView) WithTx(_ context.Context, fn func(conges.Store) error) error {
	return fn(v)
}

// =============================================================================
// HELPERS
// =============================================================================

func sortLeaves(rs []conges.LeaveRecord) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start.Before(rs[j].Start) })
}

func copyAllocation(a ledger.Allocation) ledger.Allocation {
	if a == nil {
		return nil
	}
	cp := make(ledger.Allocation, len(a))
	for y, d := range a {
		cp[y] = d
	}
	return cp
}

// Seed credits a balance outside any business flow. Test helper.
func (m *Memory) Seed(agentID string, year int, days decimal.Decimal, status ledger.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertBalanceLocked(ledger.YearlyBalance{
		AgentID:   agentID,
		Year:      year,
		Remaining: days,
		Status:    status,
	})
}
