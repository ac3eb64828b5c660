// Package mail delivers one-time passwords to suppliers.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/instasupply/internal/domain/auth"
)

var (
	_ auth.Mailer = (*SMTPMailer)(nil)
	_ auth.Mailer = (*LogMailer)(nil)
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether an SMTP host is configured.
func (c Config) Enabled() bool { return c.Host != "" }

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends OTP emails over SMTP.
type SMTPMailer struct {
	cfg  Config
	send sendFunc
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// SendOTP mails code to the given address.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var a smtp.Auth
	if m.cfg.User != "" {
		a = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, a, m.cfg.From, []string{to}, otpMessage(m.cfg.From, to, code)); err != nil {
		return errors.Wrap(err, "send otp mail")
	}
	return nil
}

func otpMessage(from, to, code string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: InstaSupply <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your InstaSupply verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Your verification code is %s.\r\n\r\n", code)
	b.WriteString("The code expires in 1 minute. If you did not request it, ignore this email.\r\n")
	return []byte(b.String())
}

// LogMailer writes codes to the log instead of sending them. Used when no
// SMTP host is configured.
type LogMailer struct {
	lg *zap.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(lg *zap.Logger) *LogMailer {
	return &LogMailer{lg: lg}
}

// SendOTP logs the code.
func (m *LogMailer) SendOTP(_ context.Context, to, code string) error {
	m.lg.Info("OTP issued", zap.String("email", to), zap.String("otp", code))
	return nil
}
