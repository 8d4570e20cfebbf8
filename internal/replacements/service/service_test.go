package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/events"
	"salesops_backend/internal/replacements/domain"
	"salesops_backend/internal/replacements/repository"
	"salesops_backend/internal/replacements/transport"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/internal/shared/notes"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	items map[uuid.UUID]domain.Replacement
	// race, when set, changes the stored status right before a conditional write.
	race *domain.Status
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Replacement, error) {
	r, ok := f.items[id]
	if !ok {
		return domain.Replacement{}, repository.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) List(_ context.Context, p repository.ListParams) ([]domain.Replacement, int, error) {
	out := make([]domain.Replacement, 0)
	for _, r := range f.items {
		if p.OriginalOrderID != nil && r.OriginalOrderID != *p.OriginalOrderID {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (f *fakeRepo) conditional(id uuid.UUID, expected domain.Status, apply func(*domain.Replacement)) (domain.Replacement, error) {
	r, ok := f.items[id]
	if !ok {
		return domain.Replacement{}, repository.ErrNotFound
	}
	if f.race != nil {
		r.Status = *f.race
		f.items[id] = r
	}
	if r.Status != expected {
		return domain.Replacement{}, repository.ErrStaleState
	}
	apply(&r)
	f.items[id] = r
	return r, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, expected, next domain.Status, note notes.Note) (domain.Replacement, error) {
	return f.conditional(id, expected, func(r *domain.Replacement) {
		r.Status = next
		r.Notes = append(notes.Clone(r.Notes), note)
	})
}

func (f *fakeRepo) SubmitShipping(_ context.Context, id uuid.UUID, shipping domain.Shipping, note notes.Note) (domain.Replacement, error) {
	return f.conditional(id, domain.StatusRequested, func(r *domain.Replacement) {
		r.Status = domain.StatusWaitingShipment
		r.Shipping = &shipping
		r.Notes = append(notes.Clone(r.Notes), note)
	})
}

type fakeOrders struct {
	parts events.OrderParticipants
}

func (f fakeOrders) Participants(context.Context, uuid.UUID) (events.OrderParticipants, string, error) {
	return f.parts, "500", nil
}

type fakeAgents map[uuid.UUID]agents.Agent

func (f fakeAgents) Get(_ context.Context, id uuid.UUID) (agents.Agent, error) {
	a, ok := f[id]
	if !ok {
		return agents.Agent{}, apperr.NotFound("agent not found")
	}
	return a, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc  *Service
	repo *fakeRepo
	bus  *recordingBus
	cr   actor.Actor
	id   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	salesID, crID := uuid.New(), uuid.New()
	id := uuid.New()
	repo := &fakeRepo{items: map[uuid.UUID]domain.Replacement{
		id: {ID: id, Identifier: "500R", OriginalOrderID: uuid.New(), CloneOrderID: uuid.New(), Status: domain.StatusRequested, Notes: []notes.Note{}},
	}}
	bus := &recordingBus{}
	svc := New(repo, fakeOrders{parts: events.OrderParticipants{SalesAgentID: salesID, CustomerRelationsAgentID: crID}},
		fakeAgents{crID: {ID: crID, Name: "Casey CR"}}, bus, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, repo: repo, bus: bus, cr: actor.Actor{ID: crID, Roles: []string{"customer_relations"}}, id: id}
}

func validShipping() transport.SubmitShippingRequest {
	return transport.SubmitShippingRequest{Method: "vendor", Carrier: "UPS", TrackingID: "1Z999"}
}

func TestDirectInTransitFromRequestedIsInvalidPredecessor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ChangeStatus(context.Background(), f.cr, f.id, domain.StatusInTransit)
	if !apperr.HasCode(err, apperr.CodeInvalidPredecessor) {
		t.Fatalf("expected INVALID_PREDECESSOR, got %v", err)
	}
}

func TestDirectWaitingShipmentRequiresDetails(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ChangeStatus(context.Background(), f.cr, f.id, domain.StatusWaitingShipment)
	if !apperr.HasCode(err, apperr.CodeShipmentDetailsRequired) {
		t.Fatalf("expected SHIPMENT_DETAILS_REQUIRED, got %v", err)
	}
}

func TestFullForwardPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.SubmitShipping(ctx, f.cr, f.id, validShipping())
	if err != nil {
		t.Fatalf("SubmitShipping: %v", err)
	}
	if r.Status != domain.StatusWaitingShipment || r.Shipping == nil || r.Shipping.Carrier != "UPS" {
		t.Fatalf("unexpected replacement after shipping %#v", r)
	}

	if _, err := f.svc.ChangeStatus(ctx, f.cr, f.id, domain.StatusDelivered); !apperr.HasCode(err, apperr.CodeInvalidPredecessor) {
		t.Fatalf("Delivered from WaitingShipment: expected INVALID_PREDECESSOR, got %v", err)
	}

	if _, err := f.svc.ChangeStatus(ctx, f.cr, f.id, domain.StatusInTransit); err != nil {
		t.Fatalf("InTransit: %v", err)
	}
	r, err = f.svc.ChangeStatus(ctx, f.cr, f.id, domain.StatusDelivered)
	if err != nil {
		t.Fatalf("Delivered: %v", err)
	}
	if r.Status != domain.StatusDelivered {
		t.Fatalf("expected Delivered, got %s", r.Status)
	}

	if len(r.Notes) != 3 {
		t.Fatalf("expected one audit note per move, got %d", len(r.Notes))
	}
	for _, n := range r.Notes {
		if !n.System || !strings.Contains(n.Text, "Casey CR") {
			t.Fatalf("audit note missing actor: %#v", n)
		}
	}

	for _, later := range []domain.Status{domain.StatusRequested, domain.StatusInTransit} {
		if _, err := f.svc.ChangeStatus(ctx, f.cr, f.id, later); !apperr.HasCode(err, apperr.CodeCannotRevertStatus) {
			t.Fatalf("%s after Delivered: expected CANNOT_REVERT_STATUS, got %v", later, err)
		}
	}

	if len(f.bus.published) != 3 {
		t.Fatalf("expected 3 status events, got %d", len(f.bus.published))
	}
	last := f.bus.published[2].(events.ReplacementStatusChanged)
	if last.OldStatus != "InTransit" || last.NewStatus != "Delivered" || last.CustomerRelationsAgentID != f.cr.ID {
		t.Fatalf("unexpected event %#v", last)
	}
}

func TestRevertToRequestedFromEveryLaterState(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusWaitingShipment, domain.StatusInTransit, domain.StatusDelivered} {
		f := newFixture(t)
		r := f.repo.items[f.id]
		r.Status = s
		f.repo.items[f.id] = r

		_, err := f.svc.ChangeStatus(context.Background(), f.cr, f.id, domain.StatusRequested)
		if !apperr.HasCode(err, apperr.CodeCannotRevertStatus) {
			t.Fatalf("from %s: expected CANNOT_REVERT_STATUS, got %v", s, err)
		}
	}
}

func TestShippingOnlyWhileRequested(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.SubmitShipping(context.Background(), f.cr, f.id, validShipping()); err != nil {
		t.Fatalf("SubmitShipping: %v", err)
	}
	_, err := f.svc.SubmitShipping(context.Background(), f.cr, f.id, validShipping())
	if !apperr.HasCode(err, apperr.CodeCannotRevertStatus) {
		t.Fatalf("expected CANNOT_REVERT_STATUS on second submission, got %v", err)
	}
}

func TestOwnShippingNeedsAmount(t *testing.T) {
	f := newFixture(t)
	req := transport.SubmitShippingRequest{Method: "own", Carrier: "FedEx", TrackingID: "42"}

	_, err := f.svc.SubmitShipping(context.Background(), f.cr, f.id, req)
	if !apperr.HasCode(err, apperr.CodeShipmentDetailsRequired) {
		t.Fatalf("expected SHIPMENT_DETAILS_REQUIRED, got %v", err)
	}
	if f.repo.items[f.id].Status != domain.StatusRequested {
		t.Fatal("status must not change on rejected shipping")
	}
}

func TestLostRaceIsStaleState(t *testing.T) {
	f := newFixture(t)
	moved := domain.StatusWaitingShipment
	f.repo.race = &moved

	_, err := f.svc.SubmitShipping(context.Background(), f.cr, f.id, validShipping())
	if !apperr.HasCode(err, apperr.CodeStaleState) {
		t.Fatalf("expected STALE_STATE, got %v", err)
	}
	if len(f.bus.published) != 0 {
		t.Fatal("no event may be published for a lost race")
	}
}

func TestOutsiderIsForbidden(t *testing.T) {
	f := newFixture(t)
	outsider := actor.Actor{ID: uuid.New(), Roles: []string{"sales"}}

	if _, err := f.svc.Get(context.Background(), outsider, f.id); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), actor.Admin(uuid.New()), f.id); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
}

func TestMissingReplacement(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ChangeStatus(context.Background(), f.cr, uuid.New(), domain.StatusInTransit)
	if !apperr.HasCode(err, apperr.CodeRecordNotFound) {
		t.Fatalf("expected RECORD_NOT_FOUND, got %v", err)
	}
}
