package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinego/internal/config"
	"github.com/iliyamo/cinego/internal/logger"
)

type captured struct {
	addr string
	from string
	to   []string
	body string
}

func newTestMailer(cfg config.SMTPConfig, out *captured, fail error) *SMTPMailer {
	m := NewSMTPMailer(cfg, logger.Discard())
	m.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		out.addr, out.from, out.to, out.body = addr, from, to, string(msg)
		return fail
	}
	return m
}

func TestSMTPMailer_DryRunWithoutHost(t *testing.T) {
	var got captured
	m := newTestMailer(config.SMTPConfig{}, &got, nil)
	assert.True(t, m.DryRun())
	require.NoError(t, m.Send(context.Background(), Message{To: "a@b.c", Subject: "hi", HTML: "<p>x</p>"}))
	assert.Empty(t, got.addr)
}

func TestSMTPMailer_Send(t *testing.T) {
	var got captured
	m := newTestMailer(config.SMTPConfig{Host: "smtp.test", Port: 587, User: "u", Password: "p", From: "CineGo <no-reply@cinego.app>"}, &got, nil)

	require.NoError(t, m.Send(context.Background(), Message{To: "ann@example.com", Subject: "Booked", HTML: "<p>ok</p>", Text: "ok"}))
	assert.Equal(t, "smtp.test:587", got.addr)
	assert.Equal(t, "no-reply@cinego.app", got.from)
	assert.Equal(t, []string{"ann@example.com"}, got.to)
	assert.Contains(t, got.body, "Subject: Booked\r\n")
	assert.Contains(t, got.body, "Content-Type: text/plain")
	assert.Contains(t, got.body, "<p>ok</p>")
	assert.True(t, strings.HasSuffix(got.body, "--\r\n"))
}

func TestSMTPMailer_SendErrors(t *testing.T) {
	var got captured
	m := newTestMailer(config.SMTPConfig{Host: "smtp.test", Port: 587, From: "x@y.z"}, &got, errors.New("refused"))
	assert.Error(t, m.Send(context.Background(), Message{To: "a@b.c"}))
	assert.Error(t, m.Send(context.Background(), Message{}))
}

func TestBookingConfirmation_Renders(t *testing.T) {
	msg, err := BookingConfirmation("ann@example.com", BookingEmail{
		UserName: "Ann", MovieTitle: "Dune <IMAX>", ShowDate: "Mon, 3 Mar 2025", ShowTime: "7:30 PM",
		Seats: []string{"A1", "A2"}, Amount: 400, BookingID: "b1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Contains(t, msg.HTML, "A1, A2")
	assert.Contains(t, msg.HTML, "Dune &lt;IMAX&gt;")
	assert.Contains(t, msg.Subject, "Dune")
}

func TestShowAnnouncement_Renders(t *testing.T) {
	msg, err := ShowAnnouncement("bob@example.com", ShowEmail{UserName: "Bob", MovieTitle: "Dune", ShowCount: 3, Link: "http://front/movies/m1"})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "3 new show(s)")
	assert.Contains(t, msg.HTML, `href="http://front/movies/m1"`)
}
