package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/allocation"
	"salesops_backend/internal/events"
	leadtransport "salesops_backend/internal/leads/transport"
	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/orders/repository"
	"salesops_backend/internal/orders/transport"
	"salesops_backend/internal/shared/actor"
	"salesops_backend/internal/shared/notes"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu           sync.Mutex
	counter      int64
	orders       map[uuid.UUID]domain.Order
	identifiers  map[string]uuid.UUID
	replacements map[uuid.UUID]uuid.UUID // replacement id -> original id
	insertErr    error
}

func newFakeRepo(startAt int64) *fakeRepo {
	return &fakeRepo{
		counter:      startAt - 1,
		orders:       make(map[uuid.UUID]domain.Order),
		identifiers:  make(map[string]uuid.UUID),
		replacements: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeRepo) NextOrderNumber(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	return f.counter, nil
}

func (f *fakeRepo) insert(o domain.Order) (domain.Order, error) {
	if _, taken := f.identifiers[o.Identifier]; taken {
		return domain.Order{}, repository.ErrDuplicateIdentifier
	}
	// Store a private copy so tests observe persistence, not aliasing.
	stored := o
	stored.Vendors = domain.CloneVendors(o.Vendors)
	stored.Notes = notes.Clone(o.Notes)
	stored.ProcurementNotes = notes.Clone(o.ProcurementNotes)
	stored.UpdatedAt = time.Now()
	f.orders[o.ID] = stored
	f.identifiers[o.Identifier] = o.ID
	return stored, nil
}

func (f *fakeRepo) Create(_ context.Context, o domain.Order) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(o)
}

func (f *fakeRepo) InsertReplacement(_ context.Context, clone domain.Order, originalID uuid.UUID) (domain.Order, uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return domain.Order{}, uuid.Nil, f.insertErr
	}
	created, err := f.insert(clone)
	if err != nil {
		return domain.Order{}, uuid.Nil, err
	}
	id := uuid.New()
	f.replacements[id] = originalID
	return created, id, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, repository.ErrNotFound
	}
	return o, nil
}

func (f *fakeRepo) List(_ context.Context, p repository.ListParams) ([]domain.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Order, 0)
	for _, o := range f.orders {
		if p.ParticipantID != nil && !o.IsParticipant(*p.ParticipantID) {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, expected, next domain.Status) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, repository.ErrNotFound
	}
	if o.Status != expected {
		return domain.Order{}, repository.ErrStaleState
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	f.orders[id] = o
	return o, nil
}

func (f *fakeRepo) appendTo(id uuid.UUID, note notes.Note, procurement bool) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, repository.ErrNotFound
	}
	if procurement {
		o.ProcurementNotes = append(notes.Clone(o.ProcurementNotes), note)
	} else {
		o.Notes = append(notes.Clone(o.Notes), note)
	}
	f.orders[id] = o
	return o, nil
}

func (f *fakeRepo) AppendNote(_ context.Context, id uuid.UUID, note notes.Note) (domain.Order, error) {
	return f.appendTo(id, note, false)
}

func (f *fakeRepo) AppendProcurementNote(_ context.Context, id uuid.UUID, note notes.Note) (domain.Order, error) {
	return f.appendTo(id, note, true)
}

func (f *fakeRepo) ReplaceVendors(_ context.Context, id uuid.UUID, expected time.Time, vendors []domain.Vendor) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, repository.ErrNotFound
	}
	if !o.UpdatedAt.Equal(expected) {
		return domain.Order{}, repository.ErrStaleState
	}
	o.Vendors = domain.CloneVendors(vendors)
	o.UpdatedAt = expected.Add(time.Millisecond)
	f.orders[id] = o
	return o, nil
}

func (f *fakeRepo) ListReplacedWithoutClone(context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	spawned := make(map[uuid.UUID]bool)
	for _, original := range f.replacements {
		spawned[original] = true
	}
	out := make([]domain.Order, 0)
	for _, o := range f.orders {
		if o.Status == domain.StatusReplacement && !spawned[o.ID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) byStatus(status domain.Status) []domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Order, 0)
	for _, o := range f.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

type fixedAllocator struct {
	agent agents.Agent
	err   error
}

func (a fixedAllocator) Assign(ctx context.Context, _ allocation.Pool, _ *uuid.UUID, save func(context.Context, agents.Agent) error) (agents.Agent, error) {
	if a.err != nil {
		return agents.Agent{}, a.err
	}
	if err := save(ctx, a.agent); err != nil {
		return agents.Agent{}, err
	}
	return a.agent, nil
}

type fakeLeads struct {
	leads   map[uuid.UUID]leadtransport.LeadResponse
	ordered []uuid.UUID
}

func (f *fakeLeads) Lookup(_ context.Context, id uuid.UUID) (leadtransport.LeadResponse, error) {
	l, ok := f.leads[id]
	if !ok {
		return leadtransport.LeadResponse{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (f *fakeLeads) MarkOrdered(_ context.Context, id uuid.UUID) error {
	f.ordered = append(f.ordered, id)
	l := f.leads[id]
	l.Status = leadtransport.LeadStatusOrdered
	f.leads[id] = l
	return nil
}

type fakeAgents map[uuid.UUID]agents.Agent

func (f fakeAgents) Get(_ context.Context, id uuid.UUID) (agents.Agent, error) {
	a, ok := f[id]
	if !ok {
		return agents.Agent{}, apperr.NotFound("agent not found")
	}
	return a, nil
}

type fakeLitigation struct {
	opened map[uuid.UUID]uuid.UUID
}

func (f *fakeLitigation) OpenForOrder(_ context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	if id, ok := f.opened[orderID]; ok {
		return id, nil
	}
	id := uuid.New()
	f.opened[orderID] = id
	return id, nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}
func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, e := range b.published {
		out = append(out, e.EventName())
	}
	return out
}

type fixture struct {
	svc        *Service
	repo       *fakeRepo
	leads      *fakeLeads
	litigation *fakeLitigation
	bus        *recordingBus
	sales      agents.Agent
	cr         agents.Agent
	admin      actor.Actor
}

func newFixture(t *testing.T, startAt int64) *fixture {
	t.Helper()
	sales := agents.Agent{ID: uuid.New(), Name: "Sam Sales", Role: agents.RoleSales}
	cr := agents.Agent{ID: uuid.New(), Name: "Casey CR", Role: agents.RoleCustomerRelations, AvailabilityStatus: agents.StatusAvailable}
	adminID := uuid.New()

	repo := newFakeRepo(startAt)
	leads := &fakeLeads{leads: make(map[uuid.UUID]leadtransport.LeadResponse)}
	lit := &fakeLitigation{opened: make(map[uuid.UUID]uuid.UUID)}
	bus := &recordingBus{}

	svc := New(Deps{
		Repo:       repo,
		Allocator:  fixedAllocator{agent: cr},
		Leads:      leads,
		Agents:     fakeAgents{sales.ID: sales, cr.ID: cr, adminID: {ID: adminID, Name: "Ada Admin", Role: agents.RoleAdmin}},
		Litigation: lit,
		EventBus:   bus,
	})
	return &fixture{svc: svc, repo: repo, leads: leads, litigation: lit, bus: bus, sales: sales, cr: cr, admin: actor.Admin(adminID)}
}

func (f *fixture) createOrder(t *testing.T) transport.OrderResponse {
	t.Helper()
	leadID := uuid.New()
	f.leads.leads[leadID] = leadtransport.LeadResponse{
		ID:              leadID,
		CustomerName:    "Dana Cole",
		CustomerPhone:   "+14155552671",
		PartDescription: "Alternator",
		Status:          leadtransport.LeadStatusQuoted,
		AssignedAgentID: f.sales.ID,
	}
	order, err := f.svc.Create(context.Background(), actor.Actor{ID: f.sales.ID, Roles: []string{"sales"}}, transport.CreateOrderRequest{
		LeadID:          leadID,
		ShippingAddress: "1 Main St",
		SalePriceCents:  25000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return order
}

func TestCreateAssignsParticipantsAndMarksLeadOrdered(t *testing.T) {
	f := newFixture(t, 500)
	order := f.createOrder(t)

	if order.Identifier != "500" || order.OrderNumber != 500 {
		t.Fatalf("expected identifier 500, got %s/%d", order.Identifier, order.OrderNumber)
	}
	if order.SalesAgentID != f.sales.ID || order.CustomerRelationsAgentID != f.cr.ID {
		t.Fatal("unexpected participants")
	}
	if order.Status != domain.StatusLocatePending {
		t.Fatalf("expected LocatePending, got %s", order.Status)
	}
	if len(f.leads.ordered) != 1 {
		t.Fatal("lead was not marked ordered")
	}
	evt, ok := f.bus.published[0].(events.OrderCreated)
	if !ok || evt.SalesName != "Sam Sales" || evt.CRName != "Casey CR" {
		t.Fatalf("unexpected OrderCreated %#v", f.bus.published[0])
	}

	_, err := f.svc.Create(context.Background(), f.admin, transport.CreateOrderRequest{LeadID: order.LeadID, ShippingAddress: "x", SalePriceCents: 1})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for already-ordered lead, got %v", err)
	}
}

func TestCreateWithoutAvailableCustomerRelations(t *testing.T) {
	f := newFixture(t, 1)
	f.svc.alloc = fixedAllocator{err: apperr.NoEligibleAgents(string(allocation.PoolCustomerRelations))}
	leadID := uuid.New()
	f.leads.leads[leadID] = leadtransport.LeadResponse{ID: leadID, AssignedAgentID: f.sales.ID}

	_, err := f.svc.Create(context.Background(), f.admin, transport.CreateOrderRequest{LeadID: leadID, ShippingAddress: "x", SalePriceCents: 1})
	if !apperr.HasCode(err, apperr.CodeNoEligibleAgents) {
		t.Fatalf("expected NO_ELIGIBLE_AGENTS, got %v", err)
	}
	if len(f.leads.ordered) != 0 {
		t.Fatal("lead must not be marked ordered when no order was saved")
	}
}

func TestReplacementSpawnsExactlyOneDeepCopiedClone(t *testing.T) {
	f := newFixture(t, 500)
	order := f.createOrder(t)
	if _, err := f.svc.AddNote(context.Background(), f.admin, order.ID, transport.AddNoteRequest{Text: "customer called"}); err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	resp, err := f.svc.ChangeStatus(context.Background(), f.admin, order.ID, domain.StatusReplacement)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if resp.Order.Status != domain.StatusReplacement {
		t.Fatalf("original should be Replacement, got %s", resp.Order.Status)
	}
	if resp.Replacement == nil || resp.SpawnFailed {
		t.Fatal("expected a spawned replacement")
	}

	pending := f.repo.byStatus(domain.StatusLocatePending)
	if len(pending) != 1 {
		t.Fatalf("expected exactly one LocatePending clone, got %d", len(pending))
	}
	clone := pending[0]
	if clone.Identifier != "500R" || clone.ID == order.ID {
		t.Fatalf("unexpected clone %s/%s", clone.ID, clone.Identifier)
	}

	if _, err := f.svc.AddNote(context.Background(), f.admin, clone.ID, transport.AddNoteRequest{Text: "clone only"}); err != nil {
		t.Fatalf("AddNote on clone: %v", err)
	}
	original, _ := f.repo.GetByID(context.Background(), order.ID)
	if len(original.Notes) != 1 || original.Notes[0].Text != "customer called" {
		t.Fatalf("original notes changed through clone: %#v", original.Notes)
	}
	storedClone, _ := f.repo.GetByID(context.Background(), clone.ID)
	if len(storedClone.Notes) != 2 || storedClone.Notes[0].Text != "customer called" {
		t.Fatalf("clone should carry the copied note plus its own: %#v", storedClone.Notes)
	}
	if storedClone.ReplacedFromID == nil || *storedClone.ReplacedFromID != order.ID {
		t.Fatal("clone should point at the original order")
	}

	names := f.bus.names()
	if names[len(names)-1] != "orders.replacement.spawned" {
		t.Fatalf("expected ReplacementSpawned last, got %v", names)
	}
}

func TestThreeReplacementsYieldSequentialIdentifiers(t *testing.T) {
	f := newFixture(t, 500)
	current := f.createOrder(t).ID

	got := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := f.svc.ChangeStatus(context.Background(), f.admin, current, domain.StatusReplacement)
		if err != nil {
			t.Fatalf("replacement %d: %v", i, err)
		}
		got = append(got, resp.Replacement.Clone.Identifier)
		current = resp.Replacement.Clone.ID
	}

	want := []string{"500R", "500R1", "500R2"}
	sort.Strings(got)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("identifiers = %v, want %v", got, want)
		}
	}
}

func TestSpawnSkipsIdentifiersAlreadyTaken(t *testing.T) {
	f := newFixture(t, 500)
	order := f.createOrder(t)
	f.repo.identifiers["500R"] = uuid.New()

	resp, err := f.svc.ChangeStatus(context.Background(), f.admin, order.ID, domain.StatusReplacement)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if resp.Replacement.Clone.Identifier != "500R1" {
		t.Fatalf("expected 500R1, got %s", resp.Replacement.Clone.Identifier)
	}
}

func TestSpawnFailureKeepsStatusAndIsReported(t *testing.T) {
	f := newFixture(t, 500)
	order := f.createOrder(t)
	f.repo.insertErr = errors.New("connection reset")

	resp, err := f.svc.ChangeStatus(context.Background(), f.admin, order.ID, domain.StatusReplacement)
	if err != nil {
		t.Fatalf("status change must succeed even when the spawn fails: %v", err)
	}
	if !resp.SpawnFailed || resp.Replacement != nil {
		t.Fatalf("expected SpawnFailed, got %#v", resp)
	}
	stored, _ := f.repo.GetByID(context.Background(), order.ID)
	if stored.Status != domain.StatusReplacement {
		t.Fatalf("status write should stand, got %s", stored.Status)
	}

	names := f.bus.names()
	if names[len(names)-1] != "orders.replacement.spawn_failed" {
		t.Fatalf("expected ReplacementSpawnFailed, got %v", names)
	}

	findings, err := f.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(findings) != 1 || findings[0].OrderID != order.ID || findings[0].Code != string(apperr.CodeInconsistent) {
		t.Fatalf("expected one INCONSISTENT finding, got %#v", findings)
	}
}

func TestReplacementIsTerminal(t *testing.T) {
	f := newFixture(t, 500)
	order := f.createOrder(t)
	if _, err := f.svc.ChangeStatus(context.Background(), f.admin, order.ID, domain.StatusReplacement); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}

	_, err := f.svc.ChangeStatus(context.Background(), f.admin, order.ID, domain.StatusLocatePending)
	if !apperr.HasCode(err, apperr.CodeInvalidPredecessor) {
		t.Fatalf("expected INVALID_PREDECESSOR, got %v", err)
	}
}

func TestSameStatusIsNoOp(t *testing.T) {
	f := newFixture(t, 1)
	order := f.createOrder(t)
	before := len(f.bus.published)

	resp, err := f.svc.ChangeStatus(context.Background(), f.admin, order.ID, domain.StatusLocatePending)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if resp.Order.Status != domain.StatusLocatePending || len(f.bus.published) != before {
		t.Fatal("same-status request must not write or publish")
	}
}

func TestLitigationOpensRecord(t *testing.T) {
	f := newFixture(t, 1)
	order := f.createOrder(t)

	resp, err := f.svc.ChangeStatus(context.Background(), f.admin, order.ID, domain.StatusLitigation)
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if resp.LitigationID == nil || f.litigation.opened[order.ID] != *resp.LitigationID {
		t.Fatal("expected litigation to be opened for the order")
	}
}

func TestChangeStatusPublishesToParticipants(t *testing.T) {
	f := newFixture(t, 1)
	order := f.createOrder(t)

	if _, err := f.svc.ChangeStatus(context.Background(), actor.Actor{ID: f.cr.ID}, order.ID, domain.StatusPOPending); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	evt, ok := f.bus.published[len(f.bus.published)-1].(events.OrderStatusChanged)
	if !ok {
		t.Fatalf("expected OrderStatusChanged, got %#v", f.bus.published)
	}
	if evt.SalesAgentID != f.sales.ID || evt.CustomerRelationsAgentID != f.cr.ID || evt.OldStatus != "LocatePending" || evt.NewStatus != "POPending" {
		t.Fatalf("unexpected event %#v", evt)
	}

	stranger := actor.Actor{ID: uuid.New(), Roles: []string{"sales"}}
	if _, err := f.svc.ChangeStatus(context.Background(), stranger, order.ID, domain.StatusPOSent); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-participant, got %v", err)
	}
}

func TestConcurrentTransitionLosesWithStaleState(t *testing.T) {
	f := newFixture(t, 1)
	order := f.createOrder(t)

	stored := f.repo.orders[order.ID]
	stored.Status = domain.StatusPOSent
	f.repo.orders[order.ID] = stored

	_, err := f.repo.UpdateStatus(context.Background(), order.ID, domain.StatusLocatePending, domain.StatusPOPending)
	if !errors.Is(err, repository.ErrStaleState) {
		t.Fatalf("fake should report stale state, got %v", err)
	}
	if mapped := mapRepoError(err, opChangeStatus); !apperr.HasCode(mapped, apperr.CodeStaleState) {
		t.Fatalf("expected STALE_STATE, got %v", mapped)
	}
}

func TestVendorsAddAndUpdate(t *testing.T) {
	f := newFixture(t, 1)
	order := f.createOrder(t)

	withVendor, err := f.svc.AddVendor(context.Background(), f.admin, order.ID, transport.VendorRequest{Name: "Parts Co", CostCents: 9000})
	if err != nil {
		t.Fatalf("AddVendor: %v", err)
	}
	if len(withVendor.Vendors) != 1 || withVendor.Vendors[0].POStatus != domain.POStatusPending {
		t.Fatalf("unexpected vendors %#v", withVendor.Vendors)
	}

	vendorID := withVendor.Vendors[0].ID
	updated, err := f.svc.UpdateVendor(context.Background(), f.admin, order.ID, vendorID, transport.VendorRequest{
		Name: "Parts Co", CostCents: 9500, ConfirmationNumber: "CNF-1", POStatus: string(domain.POStatusConfirmed),
	})
	if err != nil {
		t.Fatalf("UpdateVendor: %v", err)
	}
	if updated.Vendors[0].ConfirmationNumber != "CNF-1" || updated.Vendors[0].CostCents != 9500 {
		t.Fatalf("vendor not updated: %#v", updated.Vendors[0])
	}

	if _, err := f.svc.UpdateVendor(context.Background(), f.admin, order.ID, uuid.New(), transport.VendorRequest{Name: "x"}); !apperr.HasCode(err, apperr.CodeRecordNotFound) {
		t.Fatalf("expected RECORD_NOT_FOUND for unknown vendor, got %v", err)
	}
}

func TestProcurementNoteVisibleToProcurementRole(t *testing.T) {
	f := newFixture(t, 1)
	order := f.createOrder(t)

	buyer := actor.Actor{ID: uuid.New(), Roles: []string{string(agents.RoleProcurement)}}
	updated, err := f.svc.AddProcurementNote(context.Background(), buyer, order.ID, transport.AddNoteRequest{Text: "PO emailed"})
	if err != nil {
		t.Fatalf("AddProcurementNote: %v", err)
	}
	if len(updated.ProcurementNotes) != 1 || len(updated.Notes) != 0 {
		t.Fatalf("note landed in the wrong list: %#v / %#v", updated.ProcurementNotes, updated.Notes)
	}
}
