package mail

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPMailer_SendOTP(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m := NewSMTPMailer(Config{Host: "smtp.acme.com", Port: 587, User: "bot", Password: "pw", From: "noreply@acme.com"})
	m.send = func(addr string, a smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	require.NoError(t, m.SendOTP(context.Background(), "jo@site.com", "4821"))
	assert.Equal(t, "smtp.acme.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"jo@site.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: jo@site.com\r\n")
	assert.Contains(t, gotMsg, "Your verification code is 4821.")
}

func TestSMTPMailer_Failure(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.acme.com", Port: 25})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := m.SendOTP(context.Background(), "jo@site.com", "4821")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLogMailer(t *testing.T) {
	require.NoError(t, NewLogMailer(zap.NewNop()).SendOTP(context.Background(), "jo@site.com", "1234"))
	assert.False(t, Config{}.Enabled())
}
