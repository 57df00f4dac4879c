package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	config "github.com/stockmart/notifier/internal/config/notifier"
	"github.com/stockmart/notifier/internal/domain/notification"
)

func testMailer(cfg config.SMTP) *Mailer {
	return NewMailer(cfg, zap.NewNop())
}

func TestMailerSend_Unconfigured(t *testing.T) {
	cases := []config.SMTP{
		{Host: "localhost", Port: 2525},
		{Host: "localhost", Port: 2525, User: "u", Password: "p"}, // no sender address
		{Host: "localhost", Port: 2525, From: "noreply@example.com"},
	}
	for _, cfg := range cases {
		m := testMailer(cfg)
		ok := m.Send(context.Background(), notification.Email{
			To:      "someone@example.com",
			Subject: "hi",
			HTML:    "<p>hi</p>",
		})
		assert.False(t, ok)
	}
}

func TestMailerSend_TransportError(t *testing.T) {
	m := testMailer(config.SMTP{
		Host:     "127.0.0.1",
		Port:     1, // nothing listens here
		User:     "u",
		Password: "p",
		From:     "noreply@example.com",
		Timeout:  time.Second,
	})

	var ok bool
	assert.NotPanics(t, func() {
		ok = m.Send(context.Background(), notification.Email{To: "x@example.com", Subject: "s", HTML: "<p>b</p>"})
	})
	assert.False(t, ok)
}

func TestBuildMessage(t *testing.T) {
	m := testMailer(config.SMTP{
		From:     "noreply@example.com",
		FromName: "E-commerce Notifications",
	})
	body := string(m.buildMessage(notification.Email{
		To:      "to@example.com",
		Subject: "Low Stock Alert: Widget",
		HTML:    "<p>running low</p>",
		CC:      []string{"cc1@example.com", "cc2@example.com"},
		BCC:     []string{"hidden@example.com"},
	}))

	assert.Contains(t, body, "From: E-commerce Notifications <noreply@example.com>")
	assert.Contains(t, body, "To: to@example.com")
	assert.Contains(t, body, "Cc: cc1@example.com, cc2@example.com")
	assert.Contains(t, body, "Subject: Low Stock Alert: Widget")
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, body, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, body, "<p>running low</p>")

	// BCC goes on the envelope only
	assert.NotContains(t, body, "hidden@example.com")
	assert.NotContains(t, body, "Bcc")
}

func TestBuildMessage_DerivesTextFromHTML(t *testing.T) {
	m := testMailer(config.SMTP{From: "noreply@example.com", FromName: "n"})
	body := string(m.buildMessage(notification.Email{
		To:      "to@example.com",
		Subject: "s",
		HTML:    "<p>first</p>line<br>second",
	}))
	require.Contains(t, body, "\nfirst\nline\nsecond")
}

func TestBuildMessage_ExplicitTextWins(t *testing.T) {
	m := testMailer(config.SMTP{From: "noreply@example.com", FromName: "n"})
	body := string(m.buildMessage(notification.Email{
		To:      "to@example.com",
		Subject: "s",
		HTML:    "<p>html part</p>",
		Text:    "plain part",
	}))
	assert.Contains(t, body, "plain part")
}

func TestHTMLToText(t *testing.T) {
	got := htmlToText("<p>a</p>b<br>c<br/>d<ul><li>e</li></ul>")
	assert.Equal(t, "\na\nb\nc\nd<ul><li>e</li></ul>", got)
}
