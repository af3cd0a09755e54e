package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/mailer"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CertificateEventType string

const (
	CertificateIssued  CertificateEventType = "certificate.issued"
	CertificateRevoked CertificateEventType = "certificate.revoked"
)

type CertificateEvent struct {
	ID         string               `json:"id"`
	Type       CertificateEventType `json:"type"`
	CertID     string               `json:"cert_id"`
	UserID     string               `json:"user_id"`
	ActorID    string               `json:"actor_id"`
	CertType   oceanseal.CertType   `json:"cert_type"`
	TxHash     string               `json:"tx_hash"`
	Email      string               `json:"email,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
	Try        int                  `json:"try"`
}

func newCertificateEvent(eventType CertificateEventType, c *model.Certificate, actorID string) CertificateEvent {
	return CertificateEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		CertID:     c.CertID,
		UserID:     c.UserID,
		ActorID:    actorID,
		CertType:   c.CertType,
		TxHash:     c.TxHash,
		OccurredAt: time.Now().UTC(),
	}
}

func NewCertificateIssuedEvent(c *model.Certificate, email string) CertificateEvent {
	event := newCertificateEvent(CertificateIssued, c, c.UserID)
	event.Email = email
	return event
}

func NewCertificateRevokedEvent(c *model.Certificate, actorID string) CertificateEvent {
	if actorID == "" {
		actorID = c.UserID
	}
	return newCertificateEvent(CertificateRevoked, c, actorID)
}

func (r *RabbitMQ) PublishCertificateEvent(event CertificateEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal certificate event: %w", err)
	}
	return r.Publish(QueueCertificateEvent, body)
}

// AuditLog is satisfied by repository.CertificateLogRepository.
type AuditLog interface {
	Create(ctx context.Context, tx *gorm.DB, log *model.CertificateLog) error
}

type EventConsumerContext struct {
	Logger   *zap.SugaredLogger
	AuditLog AuditLog
	// Nil disables issuance mail.
	Mailer        mailer.Client
	VerifyBaseURL string
}

// CertificateEventHandler returns whether a failed event should be retried.
type CertificateEventHandler func(ctx context.Context, event CertificateEvent, app *EventConsumerContext) (bool, error)

// HandleCertificateEvent appends the audit trail and mails the owner of a newly issued certificate.
func HandleCertificateEvent(ctx context.Context, event CertificateEvent, app *EventConsumerContext) (bool, error) {
	var description string
	switch event.Type {
	case CertificateIssued:
		anchor := "on-chain"
		if event.TxHash == oceanseal.TxHashOffChain {
			anchor = "off-chain"
		}
		description = fmt.Sprintf("%s certificate issued %s", event.CertType, anchor)
	case CertificateRevoked:
		description = "certificate revoked"
	default:
		return false, fmt.Errorf("unsupported certificate event type: %s", event.Type)
	}

	if err := app.AuditLog.Create(ctx, nil, &model.CertificateLog{
		EventID:     event.ID,
		Action:      string(event.Type),
		Description: description,
		ActorID:     event.ActorID,
		Timestamp:   event.OccurredAt,
		CertID:      event.CertID,
	}); err != nil {
		return true, fmt.Errorf("failed to write certificate log: %w", err)
	}

	if event.Type != CertificateIssued || event.Email == "" || app.Mailer == nil {
		return false, nil
	}

	status, err := app.Mailer.Send(mailer.TemplateCertificateIssued, event.Email, mailer.CertificateIssuedData{
		CertID:    event.CertID,
		ShortID:   oceanseal.ShortID(event.CertID),
		CertType:  string(event.CertType),
		OnChain:   event.TxHash != oceanseal.TxHashOffChain,
		VerifyURL: oceanseal.VerifyURL(app.VerifyBaseURL, event.CertID),
	})
	if err != nil {
		return true, fmt.Errorf("failed to send email: %w", err)
	}

	if status != http.StatusOK && status != http.StatusAccepted {
		return true, fmt.Errorf("email sending failed with status: %d", status)
	}

	return false, nil
}

func (r *RabbitMQ) ConsumeCertificateEvents(ctx context.Context, handler CertificateEventHandler, maxWorker int, app *EventConsumerContext) error {
	msgs, err := r.Consume(QueueCertificateEvent)
	if err != nil {
		return fmt.Errorf("failed to start consuming certificate events: %w", err)
	}

	for i := 0; i < maxWorker; i++ {
		go func(workerNumber int) {
			runEventWorker(ctx, r, workerNumber, msgs, handler, app)
		}(i + 1)
	}

	return nil
}

func runEventWorker(ctx context.Context, rabbitMQ *RabbitMQ, workerNumber int, msgs <-chan amqp.Delivery, handler CertificateEventHandler, app *EventConsumerContext) {
	for {
		select {
		case <-ctx.Done():
			app.Logger.Infof("[Event Worker %d] Shutting down", workerNumber)
			return
		case msg, ok := <-msgs:
			if !ok {
				app.Logger.Infof("[Event Worker %d] Message channel closed", workerNumber)
				return
			}
			processCertificateEvent(ctx, rabbitMQ, workerNumber, msg, handler, app)
		}
	}
}

func processCertificateEvent(ctx context.Context, rabbitMQ *RabbitMQ, workerNumber int, msg amqp.Delivery, handler CertificateEventHandler, app *EventConsumerContext) {
	if len(msg.Body) == 0 {
		app.Logger.Warnf("[Event Worker %d] Received empty message body", workerNumber)
		rabbitMQ.Nack(msg, false)
		return
	}

	var event CertificateEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		app.Logger.Warnf("[Event Worker %d] Invalid payload: %v", workerNumber, err)
		rabbitMQ.Nack(msg, false)
		return
	}

	workerPrefix := fmt.Sprintf("[Event Worker %d: Retry %d]", workerNumber, event.Try)

	shouldRequeue, err := handler(ctx, event, app)
	if err != nil {
		app.Logger.Errorf("%s Handler error processing %s for certificate %s: %v", workerPrefix, event.Type, event.CertID, err)

		if !shouldRequeue || event.Try >= MAX_QUEUE_RETRY {
			app.Logger.Warnf("%s Dropping %s for certificate %s (retry: %d, shouldRequeue: %v)", workerPrefix, event.Type, event.CertID, event.Try, shouldRequeue)
			rabbitMQ.Nack(msg, false)
			return
		}

		requeueCertificateEvent(rabbitMQ, workerPrefix, msg, event, app.Logger)
		return
	}

	app.Logger.Debugf("%s Processed %s for certificate %s", workerPrefix, event.Type, event.CertID)
	rabbitMQ.Ack(msg)
}

func requeueCertificateEvent(rabbitMQ *RabbitMQ, workerPrefix string, msg amqp.Delivery, event CertificateEvent, logger *zap.SugaredLogger) {
	event.Try++
	if err := rabbitMQ.PublishCertificateEvent(event); err != nil {
		logger.Errorf("%s Failed to requeue %s for certificate %s: %v", workerPrefix, event.Type, event.CertID, err)
		rabbitMQ.Nack(msg, false)
		return
	}

	logger.Infof("%s Requeued %s for certificate %s", workerPrefix, event.Type, event.CertID)
	rabbitMQ.Ack(msg)
}
