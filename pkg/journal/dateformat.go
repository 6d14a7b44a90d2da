package journal

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	DefaultLocale = "en-US"

	layoutMonthDay    = "01/02"
	layoutDayMonth    = "02/01"
	layoutMonthDayISO = "01-02"
)

var (
	monthFirstRegions = map[string]bool{"US": true, "PH": true, "FM": true, "MH": true, "PW": true, "BZ": true}
	isoOrderRegions   = map[string]bool{"CN": true, "JP": true, "KR": true, "TW": true, "HU": true, "LT": true, "MN": true, "SE": true}
)

// DateFormatter renders the short label shown on a reflection's token.
type DateFormatter struct {
	tag    language.Tag
	layout string
}

// NewDateFormatter chooses a month/day layout from the region of a BCP 47 locale.
func NewDateFormatter(locale string) (DateFormatter, error) {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		trimmed = DefaultLocale
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return DateFormatter{}, fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}
	region, _ := tag.Region()
	layout := layoutDayMonth
	switch {
	case monthFirstRegions[region.String()]:
		layout = layoutMonthDay
	case isoOrderRegions[region.String()]:
		layout = layoutMonthDayISO
	}
	return DateFormatter{tag: tag, layout: layout}, nil
}

// Format renders moment's month and day.
func (formatter DateFormatter) Format(moment time.Time) string {
	layout := formatter.layout
	if layout == "" {
		layout = layoutMonthDay
	}
	return moment.Format(layout)
}

// Locale returns the canonical locale the formatter was built for.
func (formatter DateFormatter) Locale() string {
	return formatter.tag.String()
}
