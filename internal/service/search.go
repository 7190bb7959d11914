package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/cinego/internal/model"
)

const defaultSearchWindow = 14 * 24 * time.Hour

// SearchQuery is the structured form of a free-text show search.
type SearchQuery struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	AfterMin    *int      `json:"afterMin"`
	BeforeMin   *int      `json:"beforeMin"`
	MaxPrice    *int64    `json:"maxPrice"`
	Genres      []string  `json:"genres"`
	TitleTokens []string  `json:"titleTokens"`
}

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	dayWordRe = regexp.MustCompile(`\b(today|tomorrow|sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	afterRe   = regexp.MustCompile(`(?:\b(?:after|post)|>=)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	beforeRe  = regexp.MustCompile(`\bbefore\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	priceRe   = regexp.MustCompile(`(?:under|below|less\s*than|<=|near)\s*(?:₹|rs\.?|inr)?\s*(\d{2,5})|(?:₹|rs\.?|inr)\s*(\d{2,5})`)
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

// knownGenres maps query words to TMDB genre names.
var knownGenres = []struct{ word, genre string }{
	{"action", "Action"}, {"adventure", "Adventure"}, {"animation", "Animation"},
	{"comedy", "Comedy"}, {"crime", "Crime"}, {"drama", "Drama"}, {"family", "Family"},
	{"fantasy", "Fantasy"}, {"history", "History"}, {"horror", "Horror"}, {"mystery", "Mystery"},
	{"romance", "Romance"}, {"science fiction", "Science Fiction"}, {"sci-fi", "Science Fiction"},
	{"thriller", "Thriller"}, {"war", "War"}, {"western", "Western"},
}

var searchStopWords = map[string]bool{
	"movie": true, "movies": true, "show": true, "shows": true, "after": true, "before": true,
	"post": true, "today": true, "tomorrow": true, "this": true, "near": true, "under": true,
	"below": true, "less": true, "than": true, "inr": true, "the": true, "and": true, "for": true,
	"science": true, "fiction": true, "sci": true,
}

// ParseSearchQuery turns q into filters. Dates are interpreted in now's
// location. Without a date the window is now through fourteen days ahead.
func ParseSearchQuery(q string, now time.Time) SearchQuery {
	q = strings.ToLower(strings.TrimSpace(q))
	sq := SearchQuery{From: now, To: now.Add(defaultSearchWindow), Genres: []string{}, TitleTokens: []string{}}

	if m := isoDateRe.FindStringSubmatch(q); m != nil {
		if d, err := time.ParseInLocation("2006-01-02", m[1], now.Location()); err == nil {
			sq.From, sq.To = dayBounds(d)
		}
	} else if m := dayWordRe.FindStringSubmatch(q); m != nil {
		day := now
		switch m[1] {
		case "today":
		case "tomorrow":
			day = now.AddDate(0, 0, 1)
		default:
			diff := (int(weekdays[m[1]]) - int(now.Weekday()) + 7) % 7
			day = now.AddDate(0, 0, diff)
		}
		sq.From, sq.To = dayBounds(day)
	}

	if m := afterRe.FindStringSubmatch(q); m != nil {
		v := clockMinutes(m[1], m[2], m[3])
		sq.AfterMin = &v
	}
	if m := beforeRe.FindStringSubmatch(q); m != nil {
		v := clockMinutes(m[1], m[2], m[3])
		sq.BeforeMin = &v
	}
	if m := priceRe.FindStringSubmatch(q); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if p, err := strconv.ParseInt(raw, 10, 64); err == nil {
			sq.MaxPrice = &p
		}
	}

	seen := map[string]bool{}
	genreWords := map[string]bool{}
	for _, g := range knownGenres {
		if strings.Contains(q, g.word) {
			genreWords[g.word] = true
			if !seen[g.genre] {
				seen[g.genre] = true
				sq.Genres = append(sq.Genres, g.genre)
			}
		}
	}

	for _, w := range strings.Fields(nonWordRe.ReplaceAllString(q, " ")) {
		if len([]rune(w)) <= 2 || searchStopWords[w] || genreWords[w] || isDayWord(w) || isNumeric(w) {
			continue
		}
		if isClockToken(w) {
			continue
		}
		sq.TitleTokens = append(sq.TitleTokens, w)
	}
	return sq
}

// Matches applies the filters the store query cannot express: time of day
// in loc, genres and title tokens.
func (sq SearchQuery) Matches(s model.ShowWithMovie, loc *time.Location) bool {
	local := s.StartTime.In(loc)
	mins := local.Hour()*60 + local.Minute()
	if sq.AfterMin != nil && mins < *sq.AfterMin {
		return false
	}
	if sq.BeforeMin != nil && mins > *sq.BeforeMin {
		return false
	}
	if len(sq.Genres) > 0 {
		found := false
		for _, g := range s.Movie.Genres {
			for _, want := range sq.Genres {
				if g == want {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	title := strings.ToLower(s.Movie.Title)
	for _, tok := range sq.TitleTokens {
		if !strings.Contains(title, tok) {
			return false
		}
	}
	return true
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Millisecond)
}

func clockMinutes(h, m, ampm string) int {
	hh, _ := strconv.Atoi(h)
	mm := 0
	if m != "" {
		mm, _ = strconv.Atoi(m)
	}
	switch ampm {
	case "pm":
		if hh != 12 {
			hh += 12
		}
	case "am":
		if hh == 12 {
			hh = 0
		}
	}
	return hh*60 + mm
}

func isDayWord(w string) bool {
	_, ok := weekdays[w]
	return ok
}

// isClockToken matches "7pm", "10am" and the like.
func isClockToken(w string) bool {
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(w, suffix) && isNumeric(strings.TrimSuffix(w, suffix)) {
			return true
		}
	}
	return false
}

func isNumeric(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
