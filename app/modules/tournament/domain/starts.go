package tournamentdomain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// timezones maps the abbreviations players type to IANA zones.
var timezones = map[string]string{
	"UTC": "UTC",
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"CET": "Europe/Berlin",
	"JST": "Asia/Tokyo",
}

var compactClock = regexp.MustCompile(`(\d{1,2})(\d{2})(am|pm)`)

func location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	name, ok := timezones[strings.ToUpper(tz)]
	if !ok {
		name = tz
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidTournament, tz)
	}
	return loc, nil
}

// ParseStartsAt reads an absolute or relative start time and returns it in
// UTC, truncated to the minute. It must not lie in the past.
func ParseStartsAt(input, tz string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return checkFuture(t.UTC(), now)
	}

	loc, err := location(tz)
	if err != nil {
		return time.Time{}, err
	}

	text := strings.ToLower(input)
	text = strings.ReplaceAll(text, "today ", "today at ")
	text = compactClock.ReplaceAllString(text, "$1:$2 $3")

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now.In(loc))
	if err != nil || r == nil {
		return time.Time{}, fmt.Errorf("%w: could not read start time %q", ErrInvalidTournament, input)
	}
	return checkFuture(r.Time.In(time.UTC), now)
}

func checkFuture(t, now time.Time) (time.Time, error) {
	t = t.Truncate(time.Minute)
	if t.Before(now.UTC().Truncate(time.Minute)) {
		return time.Time{}, fmt.Errorf("%w: start time %s is in the past", ErrInvalidTournament, t.Format(time.RFC3339))
	}
	return t, nil
}
