package mail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIMAPConfig_Defaults(t *testing.T) {
	c := IMAPConfig{Username: "u", Password: "p"}.withDefaults()
	assert.Equal(t, DefaultIMAPHost, c.Host)
	assert.Equal(t, DefaultIMAPPort, c.Port)
	assert.Equal(t, defaultIMAPTimeout, c.Timeout)

	c = IMAPConfig{Host: "mail.example.com", Port: 1993, Timeout: time.Second}.withDefaults()
	assert.Equal(t, "mail.example.com", c.Host)
	assert.Equal(t, 1993, c.Port)
	assert.Equal(t, time.Second, c.Timeout)
}

func TestDialIMAP_NotConfigured(t *testing.T) {
	assert.False(t, IMAPConfig{Username: "u"}.Configured())

	_, err := DialIMAP(context.Background(), IMAPConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = IMAPDialer(IMAPConfig{Password: "p"})(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
