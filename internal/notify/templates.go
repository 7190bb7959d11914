package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// BookingEmail feeds the booking confirmation template.
type BookingEmail struct {
	UserName   string
	MovieTitle string
	ShowDate   string
	ShowTime   string
	Seats      []string
	Amount     int64
	BookingID  string
}

// ShowEmail feeds the new-show announcement template.
type ShowEmail struct {
	UserName   string
	MovieTitle string
	ShowCount  int
	Link       string
}

var (
	bookingTmpl = template.Must(template.New("booking").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.5">
  <h2>Hi {{.UserName}},</h2>
  <p>Your booking for <strong style="color:#F84565">{{.MovieTitle}}</strong> is confirmed.</p>
  <p><strong>Date:</strong> {{.ShowDate}}<br/><strong>Time:</strong> {{.ShowTime}}<br/>
  <strong>Seats:</strong> {{range $i, $s := .Seats}}{{if $i}}, {{end}}{{$s}}{{end}}<br/>
  <strong>Amount:</strong> {{.Amount}}</p>
  <p style="color:#888">Booking reference {{.BookingID}}</p>
  <p>Enjoy the show!</p>
</div>`))

	showTmpl = template.Must(template.New("show").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.5">
  <h2>Hi {{.UserName}},</h2>
  <p>{{.ShowCount}} new show(s) of <strong style="color:#F84565">{{.MovieTitle}}</strong> just went on sale.</p>
  {{if .Link}}<p><a href="{{.Link}}">Book your seats</a></p>{{end}}
</div>`))
)

// BookingConfirmation renders the confirmation email for one booking.
func BookingConfirmation(to string, d BookingEmail) (Message, error) {
	var buf bytes.Buffer
	if err := bookingTmpl.Execute(&buf, d); err != nil {
		return Message{}, fmt.Errorf("render booking email: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Payment Confirmation: %q booked!", d.MovieTitle),
		HTML:    buf.String(),
		Text: fmt.Sprintf("Hi %s, your booking for %s on %s at %s is confirmed. Seats: %s.",
			d.UserName, d.MovieTitle, d.ShowDate, d.ShowTime, strings.Join(d.Seats, ", ")),
	}, nil
}

// ShowAnnouncement renders the new-show email for one recipient.
func ShowAnnouncement(to string, d ShowEmail) (Message, error) {
	var buf bytes.Buffer
	if err := showTmpl.Execute(&buf, d); err != nil {
		return Message{}, fmt.Errorf("render show email: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("New shows added: %s", d.MovieTitle),
		HTML:    buf.String(),
		Text:    fmt.Sprintf("Hi %s, new shows of %s are now available.", d.UserName, d.MovieTitle),
	}, nil
}
