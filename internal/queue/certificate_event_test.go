package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/SeakMengs/OceanSeal/internal/mailer"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeAcknowledger struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked++
	return nil
}

type fakeAuditLog struct {
	logs []*model.CertificateLog
	err  error
}

func (f *fakeAuditLog) Create(ctx context.Context, tx *gorm.DB, log *model.CertificateLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

type fakeMailer struct {
	sent   []string
	status int
	err    error
	data   any
}

func (f *fakeMailer) Send(templateFile mailer.MailTemplateFile, toEmail string, data any) (int, error) {
	if f.err != nil {
		return -1, f.err
	}
	f.sent = append(f.sent, toEmail)
	f.data = data
	return f.status, nil
}

func testCertificate() *model.Certificate {
	return &model.Certificate{
		CertID:   "0xabcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890",
		UserID:   "user-1",
		CertType: oceanseal.CertTypePoster,
		TxHash:   "0x01",
		Status:   oceanseal.CertStatusActive,
	}
}

func TestNewCertificateEvents(t *testing.T) {
	c := testCertificate()

	issued := NewCertificateIssuedEvent(c, "owner@example.com")
	if issued.Type != CertificateIssued || issued.ActorID != "user-1" || issued.Email != "owner@example.com" {
		t.Errorf("unexpected issued event: %+v", issued)
	}
	if issued.ID == "" || issued.OccurredAt.IsZero() {
		t.Errorf("issued event missing id or timestamp: %+v", issued)
	}

	revoked := NewCertificateRevokedEvent(c, "")
	if revoked.Type != CertificateRevoked || revoked.ActorID != "user-1" {
		t.Errorf("unexpected revoked event: %+v", revoked)
	}
	if revoked.ID == issued.ID {
		t.Errorf("events share id %s", revoked.ID)
	}

	byAdmin := NewCertificateRevokedEvent(c, "admin")
	if byAdmin.ActorID != "admin" {
		t.Errorf("ActorID = %s, want admin", byAdmin.ActorID)
	}
}

func TestHandleCertificateEvent(t *testing.T) {
	offChain := testCertificate()
	offChain.TxHash = oceanseal.TxHashOffChain

	tests := []struct {
		name        string
		event       CertificateEvent
		auditErr    error
		mailer      *fakeMailer
		wantRequeue bool
		wantErr     bool
		wantLogs    int
		wantMails   int
	}{
		{
			name:      "issued with email",
			event:     NewCertificateIssuedEvent(testCertificate(), "owner@example.com"),
			mailer:    &fakeMailer{status: http.StatusAccepted},
			wantLogs:  1,
			wantMails: 1,
		},
		{
			name:     "issued without email",
			event:    NewCertificateIssuedEvent(offChain, ""),
			mailer:   &fakeMailer{status: http.StatusAccepted},
			wantLogs: 1,
		},
		{
			name:     "issued without mailer",
			event:    NewCertificateIssuedEvent(testCertificate(), "owner@example.com"),
			wantLogs: 1,
		},
		{
			name:     "revoked never mails",
			event:    NewCertificateRevokedEvent(testCertificate(), "user-1"),
			mailer:   &fakeMailer{status: http.StatusAccepted},
			wantLogs: 1,
		},
		{
			name:        "audit failure is retried",
			event:       NewCertificateRevokedEvent(testCertificate(), "user-1"),
			auditErr:    errors.New("db down"),
			wantRequeue: true,
			wantErr:     true,
		},
		{
			name:        "mail rejected is retried",
			event:       NewCertificateIssuedEvent(testCertificate(), "owner@example.com"),
			mailer:      &fakeMailer{status: http.StatusUnauthorized},
			wantRequeue: true,
			wantErr:     true,
			wantLogs:    1,
			wantMails:   1,
		},
		{
			name:    "unknown type is dropped",
			event:   CertificateEvent{Type: "certificate.unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &fakeAuditLog{err: tt.auditErr}
			app := &EventConsumerContext{
				Logger:        zap.NewNop().Sugar(),
				AuditLog:      audit,
				VerifyBaseURL: "https://ocean-seal.shop/verify",
			}
			if tt.mailer != nil {
				app.Mailer = tt.mailer
			}

			requeue, err := HandleCertificateEvent(context.Background(), tt.event, app)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleCertificateEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", requeue, tt.wantRequeue)
			}
			if len(audit.logs) != tt.wantLogs {
				t.Errorf("audit logs = %d, want %d", len(audit.logs), tt.wantLogs)
			}
			if tt.mailer != nil && len(tt.mailer.sent) != tt.wantMails {
				t.Errorf("mails sent = %d, want %d", len(tt.mailer.sent), tt.wantMails)
			}
			if len(audit.logs) == 1 && audit.logs[0].EventID != tt.event.ID {
				t.Errorf("EventID = %s, want %s", audit.logs[0].EventID, tt.event.ID)
			}
		})
	}
}

func TestHandleCertificateEventMailData(t *testing.T) {
	m := &fakeMailer{status: http.StatusOK}
	app := &EventConsumerContext{
		Logger:        zap.NewNop().Sugar(),
		AuditLog:      &fakeAuditLog{},
		Mailer:        m,
		VerifyBaseURL: "https://ocean-seal.shop/verify",
	}

	if _, err := HandleCertificateEvent(context.Background(), NewCertificateIssuedEvent(testCertificate(), "owner@example.com"), app); err != nil {
		t.Fatalf("HandleCertificateEvent() error = %v", err)
	}

	data, ok := m.data.(mailer.CertificateIssuedData)
	if !ok {
		t.Fatalf("mail data type = %T", m.data)
	}
	if !data.OnChain {
		t.Errorf("OnChain = false, want true")
	}
	if data.VerifyURL != "https://ocean-seal.shop/verify/abcdef12" {
		t.Errorf("VerifyURL = %s", data.VerifyURL)
	}
}

func TestProcessCertificateEvent(t *testing.T) {
	valid, _ := json.Marshal(NewCertificateIssuedEvent(testCertificate(), ""))
	exhausted := NewCertificateIssuedEvent(testCertificate(), "")
	exhausted.Try = MAX_QUEUE_RETRY
	exhaustedBody, _ := json.Marshal(exhausted)

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		requeue    bool
		wantAck    int
		wantNack   int
	}{
		{name: "empty body", body: nil, wantNack: 1},
		{name: "invalid json", body: []byte("{"), wantNack: 1},
		{name: "handled", body: valid, wantAck: 1},
		{name: "permanent failure", body: valid, handlerErr: errors.New("bad"), wantNack: 1},
		{name: "retries exhausted", body: exhaustedBody, handlerErr: errors.New("bad"), requeue: true, wantNack: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			msg := amqp.Delivery{Acknowledger: ack, Body: tt.body}
			called := 0
			handler := func(ctx context.Context, event CertificateEvent, app *EventConsumerContext) (bool, error) {
				called++
				return tt.requeue, tt.handlerErr
			}

			processCertificateEvent(context.Background(), &RabbitMQ{}, 1, msg, handler, &EventConsumerContext{Logger: zap.NewNop().Sugar()})

			if ack.acked != tt.wantAck {
				t.Errorf("acked = %d, want %d", ack.acked, tt.wantAck)
			}
			if ack.nacked != tt.wantNack {
				t.Errorf("nacked = %d, want %d", ack.nacked, tt.wantNack)
			}
			if ack.requeue {
				t.Errorf("message nacked with broker requeue")
			}
			if len(tt.body) > 1 && called != 1 {
				t.Errorf("handler called %d times, want 1", called)
			}
		})
	}
}
