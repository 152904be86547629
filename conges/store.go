package conges

import (
	"context"
	"time"

	"github.com/sigrh/conges/calendar"
	"github.com/sigrh/conges/ledger"
)

// Store is the persistence contract the leave manager consumes. A single
// implementation backs all of it so one transaction can span agents,
// leave records and balances.
//
// Lookup methods return the package sentinels (ErrAgentNotFound,
// ErrLeaveNotFound, ErrHolidayNotFound) for missing rows, wrapped or not.
// Agent deletion cascades to the agent's leaves and balances.
type Store interface {
	ledger.BalanceStore

	// Agents
	Agent(ctx context.Context, id string) (*Agent, error)
	AgentByPPR(ctx context.Context, ppr string) (*Agent, error)
	ListAgents(ctx context.Context, term string) ([]Agent, error)
	SaveAgent(ctx context.Context, a *Agent) error
	DeleteAgent(ctx context.Context, id string) error

	// Leave records
	Leave(ctx context.Context, id string) (*LeaveRecord, error)
	LeavesForAgent(ctx context.Context, agentID string) ([]LeaveRecord, error)
	AllLeaves(ctx context.Context) ([]LeaveRecord, error)
	LeavesCovering(ctx context.Context, date time.Time) ([]LeaveRecord, error)
	InsertLeave(ctx context.Context, r *LeaveRecord) error
	UpdateLeave(ctx context.Context, r *LeaveRecord) error
	UpdateLeaveStatus(ctx context.Context, id string, status LeaveStatus) error
	DeleteLeave(ctx context.Context, id string) error

	// Custom holidays. HolidaysForYear doubles as the calendar engine's
	// CustomHolidaySource.
	HolidaysForYear(ctx context.Context, year int) ([]calendar.CustomHoliday, error)
	ListHolidays(ctx context.Context) ([]Holiday, error)
	AddHoliday(ctx context.Context, date time.Time, label string) (string, error)
	DeleteHoliday(ctx context.Context, id string) error

	// Settings (fiscal year, ...)
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// WithTx executes fn in a transaction: commit on nil, rollback on
	// error. The Store handed to fn must not escape fn.
	WithTx(ctx context.Context, fn func(Store) error) error
}
