package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Subjects are plain text and must not be HTML-escaped.
var subjects = map[Template]string{
	TemplateIntakeConfirmation: "{{.AppName}}: We received your project request!",
	TemplatePaymentRequest:     "{{.AppName}}: Your package is ready - Complete payment",
	TemplateMagicLink:          "{{.AppName}}: Your login link",
	TemplateAssetsReady:        "{{.AppName}}: Your model shots are ready for review!",
	TemplateRevisionRequest:    "{{.AppName}}: Revision requested - {{.ClientName}}",
	TemplateProjectCompleted:   "{{.AppName}}: Your project is complete!",
}

// Rendered is a ready-to-send email.
type Rendered struct {
	Subject string
	HTML    string
}

// Renderer turns a Message into subject and HTML using the embedded templates.
type Renderer struct {
	appName string
	pages   *template.Template
	titles  map[Template]*texttemplate.Template
}

type view struct {
	Data
	AppName        string
	ShortProjectID string
}

func NewRenderer(appName string) (*Renderer, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	titles := make(map[Template]*texttemplate.Template, len(subjects))
	for name, src := range subjects {
		if pages.Lookup(string(name)+".html") == nil {
			return nil, fmt.Errorf("missing body template for %s", name)
		}
		t, err := texttemplate.New(string(name)).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse subject %s: %w", name, err)
		}
		titles[name] = t
	}
	return &Renderer{appName: appName, pages: pages, titles: titles}, nil
}

func (r *Renderer) Render(msg Message) (*Rendered, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	v := view{Data: msg.Data, AppName: r.appName, ShortProjectID: shortID(msg.Data.ProjectID)}

	var subject bytes.Buffer
	if err := r.titles[msg.Template].Execute(&subject, v); err != nil {
		return nil, fmt.Errorf("render subject %s: %w", msg.Template, err)
	}
	var body bytes.Buffer
	if err := r.pages.ExecuteTemplate(&body, string(msg.Template)+".html", v); err != nil {
		return nil, fmt.Errorf("render body %s: %w", msg.Template, err)
	}
	return &Rendered{Subject: subject.String(), HTML: body.String()}, nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
