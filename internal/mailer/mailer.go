package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

type MailTemplateFile string

const (
	FROM_NAME = "OceanSeal"
	MAX_RETRY = 3

	TemplateCertificateIssued MailTemplateFile = "certificate_issued.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile MailTemplateFile, toEmail string, data any) (int, error)
}

type CertificateIssuedData struct {
	CertID    string
	ShortID   string
	CertType  string
	OnChain   bool
	VerifyURL string
}

type RenderedMail struct {
	Subject string
	Body    string
}

// Render executes the "subject" and "body" blocks of an embedded template.
func Render(templateFile MailTemplateFile, data any) (*RenderedMail, error) {
	tmpl, err := template.ParseFS(FS, "templates/"+string(templateFile))
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail template %s: %w", templateFile, err)
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, fmt.Errorf("failed to render mail subject: %w", err)
	}

	body := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(body, "body", data); err != nil {
		return nil, fmt.Errorf("failed to render mail body: %w", err)
	}

	return &RenderedMail{Subject: subject.String(), Body: body.String()}, nil
}
