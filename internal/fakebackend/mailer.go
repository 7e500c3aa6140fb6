package fakebackend

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer notifies users by email.
type Mailer interface {
	SendWelcome(ctx context.Context, user domain.User) error
	SendListingCreated(ctx context.Context, to string, listing domain.Listing) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log *logger.Logger) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		logger: log.Named("SMTPMailer"),
	}
}

func welcomeMessage(from string, user domain.User) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", "Welcome to the marketplace")
	m.SetBody("text/plain", fmt.Sprintf("Hello %s,\n\nYour account has been created.", user.Pseudo))
	return m
}

func listingCreatedMessage(from, to string, listing domain.Listing) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "New Listing Created")
	m.SetBody("text/plain", "Your listing '"+listing.Title+"' has been created successfully.")
	return m
}

func (m *SMTPMailer) send(ctx context.Context, msg *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("Failed to send email", zap.Strings("to", msg.GetHeader("To")), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, user domain.User) error {
	return m.send(ctx, welcomeMessage(m.from, user))
}

func (m *SMTPMailer) SendListingCreated(ctx context.Context, to string, listing domain.Listing) error {
	return m.send(ctx, listingCreatedMessage(m.from, to, listing))
}

type nopMailer struct{}

func (nopMailer) SendWelcome(context.Context, domain.User) error { return nil }

func (nopMailer) SendListingCreated(context.Context, string, domain.Listing) error { return nil }
