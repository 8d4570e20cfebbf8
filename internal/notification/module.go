// Package notification fans domain events out to the agents who care about
// them. Each recipient gets a persisted in-app notification followed by a
// best-effort real-time push; selected events also enqueue an email.
// Nothing here ever returns an error to the action that raised the event.
package notification

import (
	"context"
	"fmt"
	"strings"

	"salesops_backend/internal/agents"
	"salesops_backend/internal/email"
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	notifhandler "salesops_backend/internal/notification/handler"
	"salesops_backend/internal/notification/inapp"
	"salesops_backend/internal/notification/realtime"
	"salesops_backend/internal/notification/sse"
	"salesops_backend/platform/config"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sender persists and pushes one in-app notification.
type Sender interface {
	Send(ctx context.Context, p inapp.SendParams) (inapp.Notification, error)
}

// AgentDirectory resolves agents for addressing.
type AgentDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (agents.Agent, error)
	ListAdmins(ctx context.Context) ([]agents.Agent, error)
}

// EmailQueue accepts rendered emails for asynchronous delivery.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, msg email.Message) error
}

// Module is the notification bounded context.
type Module struct {
	sender     Sender
	directory  AgentDirectory
	emails     EmailQueue
	cfg        config.NotificationConfig
	log        *logger.Logger
	httpHandle *notifhandler.HTTPHandler
}

// New builds the fan-out around an existing sender. Use NewModule to get the
// database-backed module with HTTP routes.
func New(sender Sender, directory AgentDirectory, emails EmailQueue, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	return &Module{sender: sender, directory: directory, emails: emails, cfg: cfg, log: log}
}

// NewModule wires the notifications table, the pusher and the HTTP routes.
func NewModule(
	pool *pgxpool.Pool,
	hub *sse.Service,
	pusher realtime.Pusher,
	directory AgentDirectory,
	emails EmailQueue,
	cfg config.NotificationConfig,
	log *logger.Logger,
) *Module {
	svc := inapp.NewService(inapp.NewRepository(pool), pusher, log)
	m := New(svc, directory, emails, cfg, log)
	if hub != nil {
		m.httpHandle = notifhandler.NewHTTPHandler(svc, hub)
	}
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notifications"
}

// RegisterRoutes mounts the recipient-scoped notification API.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.httpHandle == nil {
		return
	}
	m.httpHandle.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// RegisterHandlers subscribes the fan-out to every event it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadReassigned{}.EventName(), m)

	bus.Subscribe(events.OrderCreated{}.EventName(), m)
	bus.Subscribe(events.OrderStatusChanged{}.EventName(), m)
	bus.Subscribe(events.ReplacementSpawned{}.EventName(), m)
	bus.Subscribe(events.ReplacementSpawnFailed{}.EventName(), m)
	bus.Subscribe(events.ReplacementInconsistencyDetected{}.EventName(), m)

	bus.Subscribe(events.ReplacementStatusChanged{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the fan-out for their type. It always returns nil.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		m.handleLeadCreated(ctx, e)
	case events.LeadReassigned:
		m.handleLeadReassigned(ctx, e)
	case events.OrderCreated:
		m.handleOrderCreated(ctx, e)
	case events.OrderStatusChanged:
		m.handleOrderStatusChanged(ctx, e)
	case events.ReplacementSpawned:
		m.handleReplacementSpawned(ctx, e)
	case events.ReplacementSpawnFailed:
		m.notifyAdmins(ctx, e.EventName(), inapp.TypeOrderUpdate, &e.OrderID,
			fmt.Sprintf("Order %s was marked Replacement but its replacement order could not be created: %s", e.Identifier, e.Reason))
	case events.ReplacementInconsistencyDetected:
		m.notifyAdmins(ctx, e.EventName(), inapp.TypeOrderUpdate, &e.OrderID,
			fmt.Sprintf("Order %s is in Replacement without a replacement order", e.Identifier))
	case events.ReplacementStatusChanged:
		m.handleReplacementStatusChanged(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
	}
	return nil
}

// recipient is one entry of a fan-out list.
type recipient struct {
	agentID uuid.UUID
	message string
}

// deliver sends to each recipient in list order. A failure for one
// recipient is logged and the rest still receive theirs.
func (m *Module) deliver(ctx context.Context, eventName string, kind inapp.Type, orderID *uuid.UUID, list []recipient) int {
	delivered := 0
	for _, r := range list {
		if r.agentID == uuid.Nil {
			continue
		}
		_, err := m.sender.Send(ctx, inapp.SendParams{
			RecipientID:    r.agentID,
			Message:        r.message,
			Type:           kind,
			RelatedOrderID: orderID,
		})
		if err != nil {
			m.log.WithContext(ctx).NotificationFailed(r.agentID.String(), eventName, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (m *Module) participants(p events.OrderParticipants, message string) []recipient {
	return []recipient{
		{agentID: p.SalesAgentID, message: message},
		{agentID: p.CustomerRelationsAgentID, message: message},
	}
}

func (m *Module) admins(ctx context.Context, eventName string) []agents.Agent {
	if m.directory == nil {
		return nil
	}
	list, err := m.directory.ListAdmins(ctx)
	if err != nil {
		m.log.WithContext(ctx).NotificationFailed("admins", eventName, err)
		return nil
	}
	return list
}

func (m *Module) notifyAdmins(ctx context.Context, eventName string, kind inapp.Type, orderID *uuid.UUID, message string) {
	admins := m.admins(ctx, eventName)
	list := make([]recipient, 0, len(admins))
	for _, a := range admins {
		list = append(list, recipient{agentID: a.ID, message: message})
	}
	m.deliver(ctx, eventName, kind, orderID, list)
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) {
	message := fmt.Sprintf("New lead assigned to you: %s", e.CustomerName)
	if part := strings.TrimSpace(e.PartDescription); part != "" {
		message += " (" + part + ")"
	}
	m.deliver(ctx, e.EventName(), inapp.TypeNewLead, nil, []recipient{{agentID: e.AssignedAgentID, message: message}})

	if m.directory == nil {
		return
	}
	agent, err := m.directory.Get(ctx, e.AssignedAgentID)
	if err != nil {
		m.log.WithContext(ctx).NotificationFailed(e.AssignedAgentID.String(), e.EventName(), err)
		return
	}
	if agent.Email == "" {
		return
	}
	msg, err := email.LeadAssigned(agent.Email, email.LeadAssignedData{
		AgentName:       agent.Name,
		CustomerName:    e.CustomerName,
		PartDescription: e.PartDescription,
		LeadURL:         m.link("leads", e.LeadID),
	})
	m.enqueue(ctx, e.EventName(), agent.ID.String(), msg, err)
}

func (m *Module) handleLeadReassigned(ctx context.Context, e events.LeadReassigned) {
	m.deliver(ctx, e.EventName(), inapp.TypeNewLead, nil, []recipient{
		{agentID: e.NewAgentID, message: fmt.Sprintf("Lead %s has been reassigned to you", e.CustomerName)},
	})
}

func (m *Module) handleOrderCreated(ctx context.Context, e events.OrderCreated) {
	orderID := e.OrderID
	list := []recipient{
		{agentID: e.SalesAgentID, message: fmt.Sprintf("Order %s for %s was created. You are the salesperson.", e.Identifier, e.CustomerName)},
		{agentID: e.CustomerRelationsAgentID, message: fmt.Sprintf("Order %s for %s was assigned to you for customer relations.", e.Identifier, e.CustomerName)},
	}

	shared := fmt.Sprintf("New order %s for %s: salesperson %s, customer relations %s",
		e.Identifier, e.CustomerName, nameOrUnknown(e.SalesName), nameOrUnknown(e.CRName))
	for _, a := range m.admins(ctx, e.EventName()) {
		list = append(list, recipient{agentID: a.ID, message: shared})
	}
	m.deliver(ctx, e.EventName(), inapp.TypeNewOrder, &orderID, list)

	to := ""
	if m.cfg != nil {
		to = m.cfg.GetAdminNotificationEmail()
	}
	if to == "" {
		return
	}
	msg, err := email.OrderCreated(to, email.OrderCreatedData{
		Identifier:   e.Identifier,
		CustomerName: e.CustomerName,
		SalesName:    nameOrUnknown(e.SalesName),
		CRName:       nameOrUnknown(e.CRName),
		OrderURL:     m.link("orders", e.OrderID),
	})
	m.enqueue(ctx, e.EventName(), to, msg, err)
}

func (m *Module) handleOrderStatusChanged(ctx context.Context, e events.OrderStatusChanged) {
	orderID := e.OrderID
	message := fmt.Sprintf("Order %s moved from %s to %s", e.Identifier, e.OldStatus, e.NewStatus)
	m.deliver(ctx, e.EventName(), inapp.TypeStatusUpdate, &orderID, m.participants(e.OrderParticipants, message))
}

func (m *Module) handleReplacementSpawned(ctx context.Context, e events.ReplacementSpawned) {
	orderID := e.OriginalOrderID
	message := fmt.Sprintf("Replacement order %s was created", e.Identifier)
	m.deliver(ctx, e.EventName(), inapp.TypeOrderUpdate, &orderID, m.participants(e.OrderParticipants, message))
}

func (m *Module) handleReplacementStatusChanged(ctx context.Context, e events.ReplacementStatusChanged) {
	orderID := e.OriginalOrderID
	message := fmt.Sprintf("Replacement %s moved from %s to %s", e.Identifier, e.OldStatus, e.NewStatus)
	m.deliver(ctx, e.EventName(), inapp.TypeStatusUpdate, &orderID, m.participants(e.OrderParticipants, message))
}

func (m *Module) enqueue(ctx context.Context, eventName, recipientID string, msg email.Message, renderErr error) {
	if renderErr != nil {
		m.log.WithContext(ctx).NotificationFailed(recipientID, eventName, renderErr)
		return
	}
	if m.emails == nil {
		return
	}
	if err := m.emails.EnqueueEmail(ctx, msg); err != nil {
		m.log.WithContext(ctx).NotificationFailed(recipientID, eventName, err)
	}
}

func (m *Module) link(resource string, id uuid.UUID) string {
	if m.cfg == nil || m.cfg.GetAppBaseURL() == "" {
		return ""
	}
	return strings.TrimRight(m.cfg.GetAppBaseURL(), "/") + "/" + resource + "/" + id.String()
}

func nameOrUnknown(name string) string {
	if strings.TrimSpace(name) == "" {
		return "unassigned"
	}
	return name
}

var (
	_ apphttp.Module = (*Module)(nil)
	_ events.Handler = (*Module)(nil)
)
