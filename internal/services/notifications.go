package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/models"
)

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Textbelt sends SMS through the Textbelt HTTP API.
type Textbelt struct {
	client *resty.Client
	key    string
}

func NewTextbelt(baseURL, key string) *Textbelt {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &Textbelt{client: client, key: key}
}

func (t *Textbelt) Send(ctx context.Context, phone, message string) error {
	var result textbeltResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"phone": phone, "message": message, "key": t.key}).
		SetResult(&result).
		Post("/text")
	if err != nil {
		return fmt.Errorf("textbelt: request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("textbelt: status %d", resp.StatusCode())
	}
	if !result.Success {
		return fmt.Errorf("textbelt: %s", result.Error)
	}
	return nil
}

// NotificationService sends appointment SMS in the background so they never
// block the API response.
type NotificationService struct {
	sms SMSSender
	log *zap.Logger
	wg  sync.WaitGroup
}

func NewNotificationService(sms SMSSender, log *zap.Logger) *NotificationService {
	return &NotificationService{sms: sms, log: log}
}

func (s *NotificationService) SendAppointmentConfirmationSMS(patient models.User, service models.Service, apt models.Appointment) {
	body := fmt.Sprintf("Appointment Requested: %s for %s on %s at %s.", service.Name, patient.FullName(), apt.Date, apt.Time)
	s.send(patient, body)
}

func (s *NotificationService) SendAppointmentCancelledSMS(patient models.User, service models.Service, apt models.Appointment) {
	body := fmt.Sprintf("Appointment Cancelled: %s for %s on %s at %s.", service.Name, patient.FullName(), apt.Date, apt.Time)
	s.send(patient, body)
}

func (s *NotificationService) send(patient models.User, body string) {
	if s == nil || s.sms == nil {
		return
	}
	if patient.MobileNumber == "" {
		s.log.Info("SMS not sent: patient has no mobile number", zap.String("user_id", patient.ID))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.sms.Send(ctx, patient.MobileNumber, body); err != nil {
			s.log.Warn("failed to send SMS", zap.String("user_id", patient.ID), zap.Error(err))
			return
		}
		s.log.Info("SMS sent", zap.String("user_id", patient.ID))
	}()
}

// Wait blocks until every pending SMS has been attempted.
func (s *NotificationService) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}

// SendGridMailer mails password reset links.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	resetURL  string
	log       *zap.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	ResetURL  string
}

// NewSendGridMailer returns nil when no API key is configured.
func NewSendGridMailer(cfg SendGridConfig, log *zap.Logger) *SendGridMailer {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Clinic Portal"
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		resetURL:  cfg.ResetURL,
		log:       log,
	}
}

func (m *SendGridMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	link := m.resetURL + "?token=" + token
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail("", email)
	text := "Use this link to reset your password: " + link
	html := fmt.Sprintf(`<p>Use <a href="%s">this link</a> to reset your password.</p>`, link)
	message := mail.NewSingleEmail(from, "Reset your password", to, text, html)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		m.log.Error("sendgrid returned error status", zap.Int("status", response.StatusCode), zap.String("body", response.Body))
		return fmt.Errorf("sendgrid: status %d", response.StatusCode)
	}
	m.log.Info("password reset email sent", zap.Int("status", response.StatusCode))
	return nil
}
