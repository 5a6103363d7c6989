package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

var dateOnlyLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDate returns the calendar date at UTC midnight and, when the text
// carries one, the time of day as written (no zone conversion).
func ParseDate(text string) (date time.Time, timeOfDay time.Duration, hasTime bool, err error) {
	s := strings.TrimSpace(text)

	for _, layout := range dateTimeLayouts {
		t, perr := time.Parse(layout, s)
		if perr != nil {
			continue
		}
		date = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		timeOfDay = time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second
		return date, timeOfDay, true, nil
	}

	for _, layout := range dateOnlyLayouts {
		t, perr := time.Parse(layout, s)
		if perr == nil {
			return t.UTC(), 0, false, nil
		}
	}

	return time.Time{}, 0, false, fmt.Errorf("%w: %q", model.ErrInvalidDate, text)
}

// DayNumber is the number of whole days between the unix epoch and date.
func DayNumber(date time.Time) int64 {
	return date.Unix() / 86400
}
