package statuslog

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

type memLog struct {
	entries map[uuid.UUID][]Entry
	err     error
}

func (m memLog) ListBetween(_ context.Context, agentID uuid.UUID, from, to time.Time) ([]Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Entry, 0)
	for _, e := range m.entries[agentID] {
		if !e.At.Before(from) && e.At.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type roleLister map[agents.Role][]agents.Agent

func (r roleLister) ListByRole(_ context.Context, role agents.Role) ([]agents.Agent, error) {
	return r[role], nil
}

func newTestService(log memLog, lister roleLister, now time.Time) *Service {
	svc := NewService(log, lister, time.UTC, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestDurationsOnlyCountsRequestedDay(t *testing.T) {
	agentID := uuid.New()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	log := memLog{entries: map[uuid.UUID][]Entry{agentID: {
		{Status: agents.StatusAvailable, At: at(day.AddDate(0, 0, -1), 22, 0)},
		{Status: agents.StatusAvailable, At: at(day, 9, 0)},
		{Status: agents.StatusLoggedOut, At: at(day, 17, 30)},
	}}}
	svc := newTestService(log, nil, at(day, 20, 0))

	report, err := svc.Durations(context.Background(), actor.Actor{ID: agentID}, agentID, day)
	if err != nil {
		t.Fatalf("Durations: %v", err)
	}
	if report.Durations[agents.StatusAvailable] != 8.5 {
		t.Fatalf("Available = %v, want 8.5", report.Durations[agents.StatusAvailable])
	}
	if report.Date != "2026-03-10" {
		t.Fatalf("unexpected date label %q", report.Date)
	}
}

func TestDurationsForbiddenForOtherAgent(t *testing.T) {
	svc := newTestService(memLog{}, nil, time.Now())
	_, err := svc.Durations(context.Background(), actor.Actor{ID: uuid.New()}, uuid.New(), time.Now())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDurationsStoreErrorIsInternal(t *testing.T) {
	svc := newTestService(memLog{err: errors.New("conn reset")}, nil, time.Now())
	id := uuid.New()
	_, err := svc.Durations(context.Background(), actor.Admin(uuid.New()), id, time.Now())
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal, got %v", err)
	}
}

func TestTeamDurationsCoversEveryAgentInOrder(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sales := []agents.Agent{{ID: uuid.New(), Name: "Ana"}, {ID: uuid.New(), Name: "Ben"}}
	cr := []agents.Agent{{ID: uuid.New(), Name: "Cy"}}
	log := memLog{entries: map[uuid.UUID][]Entry{
		sales[0].ID: {{Status: agents.StatusAvailable, At: at(day, 9, 0)}, {Status: agents.StatusLoggedOut, At: at(day, 10, 0)}},
		cr[0].ID:    {{Status: agents.StatusMeeting, At: at(day, 14, 0)}, {Status: agents.StatusLoggedOut, At: at(day, 16, 0)}},
	}}
	svc := newTestService(log, roleLister{agents.RoleSales: sales, agents.RoleCustomerRelations: cr}, at(day, 23, 0))

	reports, err := svc.TeamDurations(context.Background(), actor.Admin(uuid.New()), day, nil)
	if err != nil {
		t.Fatalf("TeamDurations: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	if reports[0].AgentName != "Ana" || reports[0].Durations[agents.StatusAvailable] != 1 {
		t.Fatalf("unexpected first report %+v", reports[0])
	}
	if reports[1].Durations[agents.StatusAvailable] != 0 {
		t.Fatalf("agent without entries should be all zero, got %+v", reports[1])
	}
	if reports[2].AgentName != "Cy" || reports[2].Durations[agents.StatusMeeting] != 2 {
		t.Fatalf("unexpected third report %+v", reports[2])
	}
}

func TestTeamDurationsRequiresAdmin(t *testing.T) {
	svc := newTestService(memLog{}, roleLister{}, time.Now())
	_, err := svc.TeamDurations(context.Background(), actor.Actor{ID: uuid.New(), Roles: []string{"sales"}}, time.Now(), nil)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc := newTestService(memLog{}, nil, now)

	got, err := svc.ParseDate("")
	if err != nil || !got.Equal(now) {
		t.Fatalf("empty date should mean now, got %v %v", got, err)
	}
	if _, err := svc.ParseDate("10/03/2026"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, err = svc.ParseDate("2026-01-02")
	if err != nil || got.Day() != 2 || got.Month() != time.January {
		t.Fatalf("unexpected parse %v %v", got, err)
	}
}
