package mailer

import (
	"fmt"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type SendGridMailer struct {
	fromEmail string
	client    *sendgrid.Client
	isSandBox bool
	logger    *zap.SugaredLogger
}

func NewSendgrid(apiKey string, fromEmail string, isProduction bool, logger *zap.SugaredLogger) *SendGridMailer {
	// For unit test
	if logger == nil {
		logger = util.NewLogger("")
	}

	return &SendGridMailer{
		fromEmail: fromEmail,
		client:    sendgrid.NewSendClient(apiKey),
		// Sandbox mode only validates the request, nothing is delivered.
		isSandBox: !isProduction,
		logger:    logger,
	}
}

// Send renders templateFile with data and delivers it, retrying with linear backoff.
//
//	status, err := m.Send(mailer.TemplateCertificateIssued, email, mailer.CertificateIssuedData{...})
func (m SendGridMailer) Send(templateFile MailTemplateFile, toEmail string, data any) (int, error) {
	rendered, err := Render(templateFile, data)
	if err != nil {
		m.logger.Errorf("Error occurred during mail template rendering, error: %v", err)
		return -1, err
	}

	from := mail.NewEmail(FROM_NAME, m.fromEmail)
	to := mail.NewEmail(toEmail, toEmail)
	message := mail.NewSingleEmail(from, rendered.Subject, to, "", rendered.Body)

	message.SetMailSettings(&mail.MailSettings{
		SandboxMode: &mail.Setting{
			Enable: &m.isSandBox,
		},
	})

	var lastErr error
	for i := 0; i < MAX_RETRY; i++ {
		response, err := m.client.Send(message)
		if err != nil {
			lastErr = err
			time.Sleep(time.Second * time.Duration(i+1))
			continue
		}

		return response.StatusCode, nil
	}

	m.logger.Errorf("Failed to send email after %d attempt, error: %v", MAX_RETRY, lastErr)

	return -1, fmt.Errorf("failed to send email after %d attempt: %w", MAX_RETRY, lastErr)
}
