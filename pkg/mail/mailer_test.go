package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/college-portal-api/pkg/config"
)

func TestSendDisabledWithoutHost(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{From: "portal@college.local"})

	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send(context.Background(), "a@b.c", "hi", "body"), ErrDisabled)
}

func TestSendRejectsBadRecipient(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "localhost", Port: 2525, From: "portal@college.local"})

	err := m.Send(context.Background(), "not an address", "hi", "body")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "set recipient")
}
