package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/auth"
	"github.com/spec-kit/task-gateway/internal/config"
	"github.com/spec-kit/task-gateway/internal/domain"
)

// Mail is a single outgoing message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers outgoing mail.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// LogMailer writes mail to the log instead of delivering it.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(cfg config.NotificationConfig, logger *zap.Logger) *LogMailer {
	return &LogMailer{from: cfg.EmailFrom, logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	if strings.TrimSpace(mail.To) == "" {
		return fmt.Errorf("mail %q has no recipient", mail.Subject)
	}
	m.logger.Info("outgoing mail",
		zap.String("from", m.from),
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
	)
	m.logger.Debug("outgoing mail body", zap.String("to", mail.To), zap.String("body", mail.Body))
	return nil
}

// links builds frontend URLs carrying link tokens.
type links struct {
	frontend string
}

func (l links) build(path, code string) string {
	return strings.TrimRight(l.frontend, "/") + path + "?code=" + url.QueryEscape(code)
}

// accountMail sends the account mails shared by the auth and user services.
type accountMail struct {
	tokens  *auth.TokenManager
	mailer  Mailer
	links   links
	linkTTL time.Duration
	logger  *zap.Logger
}

func newAccountMail(cfg config.Config, tokens *auth.TokenManager, mailer Mailer, logger *zap.Logger) accountMail {
	return accountMail{
		tokens:  tokens,
		mailer:  mailer,
		links:   links{frontend: cfg.App.FrontendURL},
		linkTTL: cfg.Auth.LinkTTL(),
		logger:  logger,
	}
}

// sendVerification mails a link that only account verification accepts.
// Failures are logged; the caller's operation has already succeeded.
func (m accountMail) sendVerification(ctx context.Context, user *domain.User) {
	err := m.sendLink(ctx, user, auth.LinkVerifyAccount, "/auth/verify", verificationMail)
	if err != nil {
		m.logger.Error("issue verification link", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// sendPasswordReset mails a link that only password reset accepts.
func (m accountMail) sendPasswordReset(ctx context.Context, user *domain.User) error {
	return m.sendLink(ctx, user, auth.LinkResetPassword, "/auth/forgot-password", passwordResetMail)
}

func (m accountMail) sendVerified(ctx context.Context, user *domain.User) {
	m.send(ctx, verificationSuccessMail(user.FullName(), user.Email, strings.TrimRight(m.links.frontend, "/")+"/auth/login"))
}

func (m accountMail) sendLink(ctx context.Context, user *domain.User, purpose auth.LinkPurpose, path string, compose func(name, email, link string) Mail) error {
	code, _, err := m.tokens.IssueLinkToken(user.ID, purpose, m.linkTTL)
	if err != nil {
		return err
	}
	m.send(ctx, compose(user.FullName(), user.Email, m.links.build(path, code)))
	return nil
}

func (m accountMail) send(ctx context.Context, mail Mail) {
	if m.mailer == nil {
		return
	}
	if err := m.mailer.Send(ctx, mail); err != nil {
		m.logger.Warn("send mail", zap.String("subject", mail.Subject), zap.Error(err))
	}
}

func verificationMail(name, email, link string) Mail {
	return Mail{
		To:      email,
		Subject: "Account Verification",
		Body: fmt.Sprintf("Dear %s,\n\nWelcome. Please click the link below to activate your account:\n%s\n\n"+
			"Unverified accounts are removed after 24 hours.\n", name, link),
	}
}

func verificationSuccessMail(name, email, loginURL string) Mail {
	return Mail{
		To:      email,
		Subject: "Account Verification Successful",
		Body:    fmt.Sprintf("Dear %s,\n\nYour account is verified. You can now log in:\n%s\n", name, loginURL),
	}
}

func passwordResetMail(name, email, link string) Mail {
	return Mail{
		To:      email,
		Subject: "Password Reset",
		Body: fmt.Sprintf("Dear %s,\n\nYou requested a password reset. Follow the link below to proceed:\n%s\n\n"+
			"This link expires in 24 hours.\n", name, link),
	}
}
