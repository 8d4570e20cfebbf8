// Package allocation distributes new work across the agents of a pool in
// round-robin order. The cursor is persisted per pool and always re-derived
// modulo the current pool size, so agents joining or leaving the pool only
// shift the next pick.
//
// Two concurrent allocations may read the same cursor and pick the same
// agent. That skew is accepted; the cursor write is a plain overwrite.
package allocation

import (
	"context"
	"fmt"

	"salesops_backend/internal/agents"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// Pool names an allocation pool.
type Pool string

const (
	PoolSales             Pool = "sales"
	PoolCustomerRelations Pool = "customer_relations"
)

const opAssign = "allocation.assign"

// Filter returns the eligibility rule for the pool.
func (p Pool) Filter(exclude *uuid.UUID) (agents.EligibilityFilter, error) {
	switch p {
	case PoolSales:
		return agents.EligibilityFilter{Role: agents.RoleSales, ExcludeID: exclude}, nil
	case PoolCustomerRelations:
		return agents.EligibilityFilter{Role: agents.RoleCustomerRelations, RequireAvailable: true, ExcludeID: exclude}, nil
	default:
		return agents.EligibilityFilter{}, fmt.Errorf("unknown allocation pool %q", p)
	}
}

// AgentSource lists pool members in stable order.
type AgentSource interface {
	ListEligible(ctx context.Context, f agents.EligibilityFilter) ([]agents.Agent, error)
}

// CursorStore persists the per-pool cursor.
type CursorStore interface {
	Load(ctx context.Context, pool Pool) (uint64, error)
	Store(ctx context.Context, pool Pool, index uint64) error
}

// Pick is a chosen agent plus the cursor position that chose it.
type Pick struct {
	Agent    agents.Agent
	Pool     Pool
	Index    uint64
	PoolSize int
}

// Allocator picks agents round-robin.
type Allocator struct {
	agents  AgentSource
	cursors CursorStore
	log     *logger.Logger
}

// New creates an Allocator.
func New(agentSource AgentSource, cursors CursorStore, log *logger.Logger) *Allocator {
	if log == nil {
		log = logger.Discard()
	}
	return &Allocator{agents: agentSource, cursors: cursors, log: log}
}

// Pick selects the next agent without moving the cursor.
func (a *Allocator) Pick(ctx context.Context, pool Pool, exclude *uuid.UUID) (Pick, error) {
	filter, err := pool.Filter(exclude)
	if err != nil {
		return Pick{}, apperr.Wrap(apperr.KindInternal, err.Error(), err).WithOp(opAssign)
	}

	eligible, err := a.agents.ListEligible(ctx, filter)
	if err != nil {
		return Pick{}, apperr.Wrap(apperr.KindInternal, "load allocation pool failed", err).WithOp(opAssign)
	}
	if len(eligible) == 0 {
		return Pick{}, apperr.NoEligibleAgents(string(pool)).WithOp(opAssign)
	}

	cursor, err := a.cursors.Load(ctx, pool)
	if err != nil {
		return Pick{}, apperr.Wrap(apperr.KindInternal, "load allocation cursor failed", err).WithOp(opAssign)
	}

	effective := cursor % uint64(len(eligible))
	return Pick{
		Agent:    eligible[effective],
		Pool:     pool,
		Index:    effective,
		PoolSize: len(eligible),
	}, nil
}

// Advance moves the pool cursor past pick.
func (a *Allocator) Advance(ctx context.Context, pick Pick) error {
	return a.cursors.Store(ctx, pick.Pool, pick.Index+1)
}

// Assign picks an agent, runs save with it, and only then advances the
// cursor. A failed save leaves the cursor where it was. A failed advance is
// logged but does not fail the already-saved record.
func (a *Allocator) Assign(ctx context.Context, pool Pool, exclude *uuid.UUID, save func(ctx context.Context, agent agents.Agent) error) (agents.Agent, error) {
	pick, err := a.Pick(ctx, pool, exclude)
	if err != nil {
		return agents.Agent{}, err
	}

	if err := save(ctx, pick.Agent); err != nil {
		return agents.Agent{}, err
	}

	log := a.log.WithContext(ctx)
	if err := a.Advance(ctx, pick); err != nil {
		log.DatabaseError(opAssign, err)
	}
	log.Allocation(string(pool), pick.Agent.ID.String(), pick.Index, pick.PoolSize)
	return pick.Agent, nil
}
