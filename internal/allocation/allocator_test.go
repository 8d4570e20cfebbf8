package allocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

type memAgents struct {
	all []agents.Agent
}

func (m *memAgents) ListEligible(_ context.Context, f agents.EligibilityFilter) ([]agents.Agent, error) {
	out := make([]agents.Agent, 0)
	for _, a := range m.all {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

type memCursors struct {
	values map[Pool]uint64
	stores int
}

func newMemCursors() *memCursors {
	return &memCursors{values: make(map[Pool]uint64)}
}

func (m *memCursors) Load(_ context.Context, pool Pool) (uint64, error) {
	return m.values[pool], nil
}

func (m *memCursors) Store(_ context.Context, pool Pool, index uint64) error {
	m.stores++
	m.values[pool] = index
	return nil
}

func salesAgents(n int) []agents.Agent {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]agents.Agent, n)
	for i := range out {
		out[i] = agents.Agent{
			ID:                 uuid.New(),
			Role:               agents.RoleSales,
			AvailabilityStatus: agents.StatusAvailable,
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func saveOK(context.Context, agents.Agent) error { return nil }

func TestAssignVisitsEveryAgentWithinOneRound(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		pool := salesAgents(n)
		alloc := New(&memAgents{all: pool}, newMemCursors(), nil)

		seen := make(map[uuid.UUID]int)
		for i := 0; i < n; i++ {
			agent, err := alloc.Assign(context.Background(), PoolSales, nil, saveOK)
			if err != nil {
				t.Fatalf("n=%d: Assign: %v", n, err)
			}
			seen[agent.ID]++
		}

		for _, a := range pool {
			if seen[a.ID] < 1 || seen[a.ID] > 2 {
				t.Fatalf("n=%d: agent %s picked %d times", n, a.ID, seen[a.ID])
			}
		}
	}
}

func TestAssignEmptyPoolReturnsNoEligibleAgents(t *testing.T) {
	paused := salesAgents(2)
	for i := range paused {
		paused[i].IsPaused = true
	}
	alloc := New(&memAgents{all: paused}, newMemCursors(), nil)

	agent, err := alloc.Assign(context.Background(), PoolSales, nil, saveOK)
	if !apperr.HasCode(err, apperr.CodeNoEligibleAgents) {
		t.Fatalf("expected NO_ELIGIBLE_AGENTS, got %v", err)
	}
	if agent.ID != uuid.Nil {
		t.Fatalf("expected zero agent, got %s", agent.ID)
	}
}

func TestCustomerRelationsPoolRequiresAvailable(t *testing.T) {
	cr := []agents.Agent{
		{ID: uuid.New(), Role: agents.RoleCustomerRelations, AvailabilityStatus: agents.StatusLunch},
	}
	alloc := New(&memAgents{all: cr}, newMemCursors(), nil)

	if _, err := alloc.Assign(context.Background(), PoolCustomerRelations, nil, saveOK); !apperr.HasCode(err, apperr.CodeNoEligibleAgents) {
		t.Fatalf("expected NO_ELIGIBLE_AGENTS for unavailable pool, got %v", err)
	}
}

func TestFailedSaveLeavesCursorUntouched(t *testing.T) {
	cursors := newMemCursors()
	cursors.values[PoolSales] = 4
	alloc := New(&memAgents{all: salesAgents(3)}, cursors, nil)

	boom := errors.New("insert failed")
	_, err := alloc.Assign(context.Background(), PoolSales, nil, func(context.Context, agents.Agent) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
	if cursors.stores != 0 || cursors.values[PoolSales] != 4 {
		t.Fatalf("cursor moved after failed save: stores=%d value=%d", cursors.stores, cursors.values[PoolSales])
	}
}

func TestCursorIsReducedModuloPoolSize(t *testing.T) {
	pool := salesAgents(3)
	cursors := newMemCursors()
	cursors.values[PoolSales] = 10
	alloc := New(&memAgents{all: pool}, cursors, nil)

	agent, err := alloc.Assign(context.Background(), PoolSales, nil, saveOK)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if agent.ID != pool[1].ID {
		t.Fatalf("expected agent at index 1, got %s", agent.ID)
	}
	if cursors.values[PoolSales] != 2 {
		t.Fatalf("expected cursor 2, got %d", cursors.values[PoolSales])
	}
}

func TestAssignHonoursExclusion(t *testing.T) {
	pool := salesAgents(2)
	alloc := New(&memAgents{all: pool}, newMemCursors(), nil)

	exclude := pool[0].ID
	for i := 0; i < 3; i++ {
		agent, err := alloc.Assign(context.Background(), PoolSales, &exclude, saveOK)
		if err != nil {
			t.Fatalf("Assign: %v", err)
		}
		if agent.ID == exclude {
			t.Fatal("excluded agent was picked")
		}
	}
}

func TestSaveReceivesPickedAgent(t *testing.T) {
	pool := salesAgents(2)
	alloc := New(&memAgents{all: pool}, newMemCursors(), nil)

	var saved uuid.UUID
	agent, err := alloc.Assign(context.Background(), PoolSales, nil, func(_ context.Context, a agents.Agent) error {
		saved = a.ID
		return nil
	})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if saved != agent.ID || agent.ID != pool[0].ID {
		t.Fatalf("expected first agent to be saved and returned, saved=%s returned=%s", saved, agent.ID)
	}
}
