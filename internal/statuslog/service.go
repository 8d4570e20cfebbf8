package statuslog

import (
	"context"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	opDurations     = "statuslog.service.durations"
	opTeamDurations = "statuslog.service.team_durations"

	teamConcurrency = 8
)

// Store reads the status log.
type Store interface {
	ListBetween(ctx context.Context, agentID uuid.UUID, from, to time.Time) ([]Entry, error)
}

// AgentLister lists agents for the team report.
type AgentLister interface {
	ListByRole(ctx context.Context, role agents.Role) ([]agents.Agent, error)
}

// Report is the durations of one agent for one day.
type Report struct {
	AgentID   uuid.UUID `json:"agentId"`
	AgentName string    `json:"agentName,omitempty"`
	Date      string    `json:"date"`
	Durations Durations `json:"durations"`
}

type Service struct {
	store  Store
	agents AgentLister
	loc    *time.Location
	log    *logger.Logger
	now    func() time.Time
}

// NewService builds the reconstructor. Days are cut at midnight in loc.
func NewService(store Store, agentLister AgentLister, loc *time.Location, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, agents: agentLister, loc: loc, log: log, now: time.Now}
}

// Durations reports agentID's hours per status on date. Agents may read
// their own report; admins may read anyone's.
func (s *Service) Durations(ctx context.Context, by actor.Actor, agentID uuid.UUID, date time.Time) (Report, error) {
	if !by.IsAdmin() && by.ID != agentID {
		return Report{}, apperr.Forbidden("you can only view your own durations").WithOp(opDurations)
	}
	d, err := s.durations(ctx, agentID, date)
	if err != nil {
		return Report{}, apperr.Wrap(apperr.KindInternal, "status log query failed", err).WithOp(opDurations)
	}
	return Report{AgentID: agentID, Date: s.dateLabel(date), Durations: d}, nil
}

// TeamDurations reports every agent of the given roles on date. An empty
// role list means every non-admin role.
func (s *Service) TeamDurations(ctx context.Context, by actor.Actor, date time.Time, roles []agents.Role) ([]Report, error) {
	if !by.IsAdmin() {
		return nil, apperr.Forbidden("only admins can view team durations").WithOp(opTeamDurations)
	}
	if len(roles) == 0 {
		roles = []agents.Role{agents.RoleSales, agents.RoleCustomerRelations, agents.RoleProcurement}
	}

	team := make([]agents.Agent, 0)
	for _, role := range roles {
		members, err := s.agents.ListByRole(ctx, role)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "agent query failed", err).WithOp(opTeamDurations)
		}
		team = append(team, members...)
	}

	reports := make([]Report, len(team))
	label := s.dateLabel(date)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(teamConcurrency)
	for i, a := range team {
		g.Go(func() error {
			d, err := s.durations(gctx, a.ID, date)
			if err != nil {
				return err
			}
			reports[i] = Report{AgentID: a.ID, AgentName: a.Name, Date: label, Durations: d}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "status log query failed", err).WithOp(opTeamDurations)
	}
	return reports, nil
}

// ParseDate reads a YYYY-MM-DD date in the business location. Empty means today.
func (s *Service) ParseDate(value string) (time.Time, error) {
	if value == "" {
		return s.now().In(s.loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, s.loc)
	if err != nil {
		return time.Time{}, apperr.Validation("date must be YYYY-MM-DD")
	}
	return t, nil
}

func (s *Service) durations(ctx context.Context, agentID uuid.UUID, date time.Time) (Durations, error) {
	start, end := DayBounds(date, s.loc)
	entries, err := s.store.ListBetween(ctx, agentID, start, end)
	if err != nil {
		s.log.WithContext(ctx).DatabaseError(opDurations, err)
		return nil, err
	}
	return Reconstruct(entries, end, s.now()), nil
}

func (s *Service) dateLabel(date time.Time) string {
	return date.In(s.loc).Format(time.DateOnly)
}
