// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

// Package email sends account notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/secureflow/secureflow/internal/config"
	"github.com/secureflow/secureflow/internal/i18n"
)

// Service sends notification emails. A nil *Service disables all
// notifications, so callers never need to check configuration themselves.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// SendWelcome greets a newly registered user.
func (s *Service) SendWelcome(ctx context.Context, toEmail, displayName string) error {
	if s == nil {
		return nil
	}

	return s.deliver(toEmail,
		i18n.T(ctx, "email_welcome_subject"),
		i18n.TData(ctx, "email_welcome_body", map[string]any{
			"Name":     displayName,
			"LoginURL": s.baseURL + "/auth/login",
		}))
}

// SendPasswordChanged notifies a user that their password was changed,
// for example through the recovery wizard.
func (s *Service) SendPasswordChanged(ctx context.Context, toEmail string) error {
	if s == nil {
		return nil
	}

	return s.deliver(toEmail,
		i18n.T(ctx, "email_password_changed_subject"),
		i18n.TData(ctx, "email_password_changed_body", map[string]any{
			"SupportURL": s.baseURL + "/auth/recovery",
		}))
}

func (s *Service) deliver(to, subject, body string) error {
	msg, err := s.compose(to, subject, body)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func (s *Service) compose(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	var err error
	if s.cfg.FromName != "" {
		err = msg.FromFormat(s.cfg.FromName, s.cfg.From)
	} else {
		err = msg.From(s.cfg.From)
	}
	if err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (s *Service) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.cfg.Port)}

	switch {
	case s.cfg.TLS && s.cfg.Port == 465:
		// Port 465 speaks implicit TLS rather than STARTTLS.
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory), mail.WithSSL())
	case s.cfg.TLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}
