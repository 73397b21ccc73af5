package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

const isoLayout = "2006-01-02"

// Normalizer resolves date text against a reference clock. The zero value
// uses the wall clock.
type Normalizer struct {
	Now      func() time.Time
	Location *time.Location
}

var std Normalizer

func ChronoDate(text string) (string, bool) { return std.ChronoDate(text) }

func FormattedDate(value string) (string, bool) { return std.FormattedDate(value) }

// Clock returns the reference instant.
func (n Normalizer) Clock() time.Time {
	t := time.Now()
	if n.Now != nil {
		t = n.Now()
	}
	if n.Location != nil {
		t = t.In(n.Location)
	}
	return t
}

// Today returns midnight of the reference day.
func (n Normalizer) Today() time.Time {
	now := n.Clock()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

const (
	monthPattern   = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	weekdayPattern = `sunday|monday|tuesday|wednesday|thursday|friday|saturday|sun|mon|tues|tue|wed|thurs|thur|thu|fri|sat`
	unitPattern    = `(minute|hour|day|week|month|year)s?`
	countPattern   = `(\d+|an?|one)`
)

var (
	remainingRe = regexp.MustCompile(`(?i)(\d+)\s+days?\s+remaining`)
	ordinalRe   = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)

	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:\b|t)`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthDayRe  = regexp.MustCompile(`\b(` + monthPattern + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	dayMonthRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthPattern + `)\b\.?(?:,?\s+(\d{4})\b)?`)

	inRe      = regexp.MustCompile(`\b(?:in|within)\s+` + countPattern + `\s+` + unitPattern + `\b`)
	agoRe     = regexp.MustCompile(`\b` + countPattern + `\s+` + unitPattern + `\s+ago\b`)
	fromNowRe = regexp.MustCompile(`\b` + countPattern + `\s+` + unitPattern + `\s+from\s+(?:now|today)\b`)
	periodRe  = regexp.MustCompile(`\b(next|last|this)\s+(week|month|year)\b`)
	weekdayRe = regexp.MustCompile(`\b(?:(next|last|this|past|previous|coming|on)\s+)?(` + weekdayPattern + `)\b`)
	casualRe  = regexp.MustCompile(`\b(today|tonight|tomorrow|yesterday)\b`)

	// a weekday directly followed by a calendar date belongs to that date
	datedRe = regexp.MustCompile(`^,?\s*(?:` + monthPattern + `|\d)`)
)

var casualDays = map[string]int{
	"today":     0,
	"tonight":   0,
	"tomorrow":  1,
	"yesterday": -1,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// natural handles phrasings the local rules do not cover.
var natural = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	return w
}()

// ChronoDate finds a date in free text ("7 days remaining", "Posted 3 days
// ago", "next Friday", "Apply by Oct 31, 2025") relative to the reference
// clock and returns it as YYYY-MM-DD. When several dates appear, the first
// one in the text wins.
func (n Normalizer) ChronoDate(text string) (string, bool) {
	clean := CleanText(text)
	if clean == "" {
		return "", false
	}

	if m := remainingRe.FindStringSubmatch(clean); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			return n.Today().AddDate(0, 0, days).Format(isoLayout), true
		}
	}

	if t, ok := n.scan(strings.ToLower(clean)); ok {
		return t.Format(isoLayout), true
	}
	if t, ok := n.parseAbsolute(clean); ok {
		return t.Format(isoLayout), true
	}

	r, err := natural.Parse(clean, n.Clock())
	if err != nil || r == nil {
		return "", false
	}
	return r.Time.In(n.Clock().Location()).Format(isoLayout), true
}

// FormattedDate re-formats any parseable date-like value to YYYY-MM-DD.
func (n Normalizer) FormattedDate(value string) (string, bool) {
	clean := CleanText(value)
	if clean == "" {
		return "", false
	}
	t, ok := n.parseAbsolute(clean)
	if !ok {
		return "", false
	}
	return t.Format(isoLayout), true
}

// dateRule reports the position of its match in s and the date it denotes.
type dateRule func(n Normalizer, s string) (int, time.Time, bool)

var dateRules = []dateRule{
	isoDate,
	slashDate,
	monthDay,
	dayMonth,
	offset(inRe, 1),
	offset(agoRe, -1),
	offset(fromNowRe, 1),
	period,
	weekday,
	casual,
}

// scan runs every rule over the lower-cased text and keeps the earliest hit.
func (n Normalizer) scan(s string) (time.Time, bool) {
	best, found := -1, time.Time{}
	for _, rule := range dateRules {
		at, t, ok := rule(n, s)
		if !ok || (best >= 0 && at >= best) {
			continue
		}
		best, found = at, t
	}
	return found, best >= 0
}

func isoDate(n Normalizer, s string) (int, time.Time, bool) {
	m := isoDateRe.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, time.Time{}, false
	}
	t, ok := n.calendar(atoi(s[m[2]:m[3]]), time.Month(atoi(s[m[4]:m[5]])), atoi(s[m[6]:m[7]]))
	return m[0], t, ok
}

func slashDate(n Normalizer, s string) (int, time.Time, bool) {
	m := slashDateRe.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, time.Time{}, false
	}
	t, ok := n.calendar(atoi(s[m[6]:m[7]]), time.Month(atoi(s[m[2]:m[3]])), atoi(s[m[4]:m[5]]))
	return m[0], t, ok
}

func monthDay(n Normalizer, s string) (int, time.Time, bool) {
	m := monthDayRe.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, time.Time{}, false
	}
	t, ok := n.calendar(n.year(s, m[6], m[7]), monthOf(s[m[2]:m[3]]), atoi(s[m[4]:m[5]]))
	return m[0], t, ok
}

func dayMonth(n Normalizer, s string) (int, time.Time, bool) {
	m := dayMonthRe.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, time.Time{}, false
	}
	t, ok := n.calendar(n.year(s, m[6], m[7]), monthOf(s[m[4]:m[5]]), atoi(s[m[2]:m[3]]))
	return m[0], t, ok
}

func offset(re *regexp.Regexp, sign int) dateRule {
	return func(n Normalizer, s string) (int, time.Time, bool) {
		m := re.FindStringSubmatchIndex(s)
		if m == nil {
			return 0, time.Time{}, false
		}
		return m[0], shift(n.Clock(), sign*amount(s[m[2]:m[3]]), s[m[4]:m[5]]), true
	}
}

func period(n Normalizer, s string) (int, time.Time, bool) {
	m := periodRe.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, time.Time{}, false
	}
	step := 0
	switch s[m[2]:m[3]] {
	case "next":
		step = 1
	case "last":
		step = -1
	}
	return m[0], shift(n.Today(), step, s[m[4]:m[5]]), true
}

func weekday(n Normalizer, s string) (int, time.Time, bool) {
	for _, m := range weekdayRe.FindAllStringSubmatchIndex(s, -1) {
		if datedRe.MatchString(s[m[1]:]) {
			continue
		}
		modifier := ""
		if m[2] >= 0 {
			modifier = s[m[2]:m[3]]
		}
		return m[0], n.resolveWeekday(modifier, weekdays[s[m[4]:m[5]]]), true
	}
	return 0, time.Time{}, false
}

func casual(n Normalizer, s string) (int, time.Time, bool) {
	m := casualRe.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, time.Time{}, false
	}
	return m[0], n.Today().AddDate(0, 0, casualDays[s[m[2]:m[3]]]), true
}

func (n Normalizer) resolveWeekday(modifier string, wd time.Weekday) time.Time {
	today := n.Today()
	ref := today.Weekday()
	switch modifier {
	case "next":
		// the given weekday in the following Monday-based week
		sinceMonday := (int(ref) + 6) % 7
		nextMonday := today.AddDate(0, 0, 7-sinceMonday)
		return nextMonday.AddDate(0, 0, (int(wd)+6)%7)
	case "last", "past", "previous":
		back := (int(ref) - int(wd) + 7) % 7
		if back == 0 {
			back = 7
		}
		return today.AddDate(0, 0, -back)
	default:
		return today.AddDate(0, 0, (int(wd)-int(ref)+7)%7)
	}
}

// calendar builds a date in the reference location, rejecting overflow
// such as February 30.
func (n Normalizer) calendar(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, n.Clock().Location())
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// year reads an optional year group, defaulting to the reference year.
func (n Normalizer) year(s string, from, to int) int {
	if from < 0 {
		return n.Clock().Year()
	}
	return atoi(s[from:to])
}

func monthOf(name string) time.Month {
	if len(name) < 3 {
		return 0
	}
	switch name[:3] {
	case "jan":
		return time.January
	case "feb":
		return time.February
	case "mar":
		return time.March
	case "apr":
		return time.April
	case "may":
		return time.May
	case "jun":
		return time.June
	case "jul":
		return time.July
	case "aug":
		return time.August
	case "sep":
		return time.September
	case "oct":
		return time.October
	case "nov":
		return time.November
	case "dec":
		return time.December
	}
	return 0
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func amount(s string) int {
	switch s {
	case "a", "an", "one":
		return 1
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func shift(t time.Time, n int, unit string) time.Time {
	switch unit {
	case "minute":
		return t.Add(time.Duration(n) * time.Minute)
	case "hour":
		return t.Add(time.Duration(n) * time.Hour)
	case "week":
		return t.AddDate(0, 0, 7*n)
	case "month":
		return t.AddDate(0, n, 0)
	case "year":
		return t.AddDate(n, 0, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

var dateLayouts = []string{
	isoLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Jan. 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2-Jan-2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
}

func (n Normalizer) parseAbsolute(s string) (time.Time, bool) {
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "on "), "On ")
	loc := n.Clock().Location()
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return parseLoose(s, loc)
}

// parseLoose falls back to dateparse; its heuristics have panicked on odd
// input in the past, so a panic counts as "no date".
func parseLoose(s string, loc *time.Location) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	parsed, err := dateparse.ParseIn(s, loc)
	if err != nil || parsed.Year() < 1000 {
		return time.Time{}, false
	}
	return parsed, true
}
