package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

// LeadAssignedData fills the email sent to a salesperson on a new lead.
type LeadAssignedData struct {
	AgentName       string
	CustomerName    string
	PartDescription string
	LeadURL         string
}

// OrderCreatedData fills the email sent to the admin address on a new order.
type OrderCreatedData struct {
	Identifier   string
	CustomerName string
	SalesName    string
	CRName       string
	OrderURL     string
}

type leadAssignedEmailData struct {
	baseEmailData
	LeadAssignedData
}

type orderCreatedEmailData struct {
	baseEmailData
	OrderCreatedData
}

// LeadAssigned renders the lead assignment email.
func LeadAssigned(to string, d LeadAssignedData) (Message, error) {
	html, err := renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:    "New lead",
			Heading:  "A new lead is waiting for you",
			CTALabel: "Open lead",
			CTAURL:   d.LeadURL,
		},
		LeadAssignedData: d,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: fmt.Sprintf(subjectLeadAssignedFmt, d.CustomerName), HTML: html}, nil
}

// OrderCreated renders the new order email.
func OrderCreated(to string, d OrderCreatedData) (Message, error) {
	html, err := renderEmailTemplate("order_created.html", orderCreatedEmailData{
		baseEmailData: baseEmailData{
			Title:    "New order",
			Heading:  "Order " + d.Identifier + " was created",
			CTALabel: "Open order",
			CTAURL:   d.OrderURL,
		},
		OrderCreatedData: d,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: fmt.Sprintf(subjectOrderCreatedFmt, d.Identifier), HTML: html}, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
