package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/notify"
	"github.com/iliyamo/cinego/internal/queue"
	"github.com/iliyamo/cinego/internal/repository"
)

type RecipientStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

type ShowGetter interface {
	GetByID(ctx context.Context, id string) (*model.Show, error)
}

// Notifier turns queue events into emails.
type Notifier struct {
	mailer   notify.Mailer
	users    RecipientStore
	shows    ShowGetter
	movies   MovieGetter
	loc      *time.Location
	frontend string
	log      *logger.Logger
}

// NewNotifier builds the email notifier. Times are rendered in loc.
func NewNotifier(mailer notify.Mailer, users RecipientStore, shows ShowGetter, movies MovieGetter,
	loc *time.Location, frontendURL string, log *logger.Logger) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{
		mailer:   mailer,
		users:    users,
		shows:    shows,
		movies:   movies,
		loc:      loc,
		frontend: strings.TrimRight(frontendURL, "/"),
		log:      log.WithComponent("notifier"),
	}
}

// BookingConfirmed emails the booking owner. Records that vanished in the
// meantime are skipped.
func (n *Notifier) BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	log := n.log.WithFields(map[string]any{"booking_id": ev.BookingID})

	user, err := n.users.GetByID(ctx, ev.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		log.Warn("booking owner not found, skipping email")
		return nil
	}
	if err != nil {
		return err
	}
	show, err := n.shows.GetByID(ctx, ev.ShowID)
	if errors.Is(err, repository.ErrShowNotFound) {
		log.Warn("show not found, skipping email")
		return nil
	}
	if err != nil {
		return err
	}
	title := "your movie"
	if m, err := n.movies.GetByID(ctx, show.MovieID); err == nil {
		title = m.Title
	}

	start := show.StartTime.In(n.loc)
	msg, err := notify.BookingConfirmation(user.Email, notify.BookingEmail{
		UserName:   displayName(user),
		MovieTitle: title,
		ShowDate:   start.Format("Mon, 2 Jan 2006"),
		ShowTime:   start.Format("3:04 PM"),
		Seats:      ev.Seats,
		Amount:     ev.Amount,
		BookingID:  ev.BookingID,
	})
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}

// ShowAdded announces new shows to every registered user.
func (n *Notifier) ShowAdded(ctx context.Context, ev queue.ShowAddedEvent) error {
	users, err := n.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}
	link := ""
	if n.frontend != "" {
		link = n.frontend + "/movies/" + ev.MovieID
	}

	var failed int
	for _, u := range users {
		msg, err := notify.ShowAnnouncement(u.Email, notify.ShowEmail{
			UserName: displayName(u), MovieTitle: ev.MovieTitle, ShowCount: ev.ShowCount, Link: link,
		})
		if err == nil {
			err = n.mailer.Send(ctx, msg)
		}
		if err != nil {
			failed++
			n.log.WithError(err).Warn("show announcement failed", "to", u.Email)
		}
	}
	n.log.Info("show announcement sent", "movie_id", ev.MovieID, "recipients", len(users), "failed", failed)
	if failed > 0 && failed == len(users) {
		return fmt.Errorf("all %d show announcements failed", failed)
	}
	return nil
}

func displayName(u model.User) string {
	if u.Name != "" {
		return u.Name
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return "there"
}
