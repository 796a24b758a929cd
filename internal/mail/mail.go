// Package mail renders and delivers the portal's transactional emails.
package mail

import (
	"context"
	"fmt"
)

// Template names one of the transactional emails.
type Template string

const (
	TemplateIntakeConfirmation Template = "intake_confirmation"
	TemplatePaymentRequest     Template = "payment_request"
	TemplateMagicLink          Template = "magic_link"
	TemplateAssetsReady        Template = "assets_ready"
	TemplateRevisionRequest    Template = "revision_request"
	TemplateProjectCompleted   Template = "project_completed"
)

// Data is the union of fields used by the templates. Each template reads
// only the fields it needs.
type Data struct {
	ClientName    string `json:"client_name,omitempty"`
	ClientEmail   string `json:"client_email,omitempty"`
	ProjectID     string `json:"project_id,omitempty"`
	ProductType   string `json:"product_type,omitempty"`
	PackageType   string `json:"package_type,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
	DashboardURL  string `json:"dashboard_url,omitempty"`
	AdminURL      string `json:"admin_url,omitempty"`
	MagicLinkURL  string `json:"magic_link_url,omitempty"`
	ExpiresIn     string `json:"expires_in,omitempty"`
	AssetCount    int64  `json:"asset_count,omitempty"`
	RevisionNotes string `json:"revision_notes,omitempty"`
}

// Message is a request to send one templated email.
type Message struct {
	Template Template `json:"template"`
	To       string   `json:"to"`
	Data     Data     `json:"data"`
}

func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("mail: %s message has no recipient", m.Template)
	}
	if _, ok := subjects[m.Template]; !ok {
		return fmt.Errorf("mail: unknown template %q", m.Template)
	}
	return nil
}

// Mailer sends templated emails. Implementations may deliver synchronously
// or hand the message to a queue.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
