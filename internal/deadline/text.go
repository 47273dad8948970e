package deadline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/ShawnOwen/threadcal/internal/date"
)

// textMatcher attempts to mine a date out of lowercased free text. Matchers
// are independent rules tried in fixed order; each either matches or yields
// to the next. A rule that matches a phrase but fails to produce a valid
// date yields as well — malformed dates never abort extraction.
type textMatcher func(text string, now time.Time) (date.Date, bool)

var textMatchers = []textMatcher{
	matchExplicitISO,
	matchMonthDay,
	matchRelative,
	matchNaturalLanguage,
}

var (
	// "deadline: 2026-02-20" or "due: 2026-02-20"
	isoPattern = regexp.MustCompile(`(?:deadline|due)[:\s]+(\d{4}-\d{2}-\d{2})`)

	// "by March 15" or "due march 15, 2026"
	monthPattern = regexp.MustCompile(`(?:by|due|before)\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})(?:[,\s]+(\d{4}))?`)

	// "in 3 days", "in 2 weeks", "in 1 month"
	relativePattern = regexp.MustCompile(`in\s+(\d+)\s+(day|week|month)s?`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// ExtractFromText mines a due date from free text. Matching is greedy: the
// first rule that produces a date wins, with no cross-validation against
// other hints in the text.
func ExtractFromText(text string, now time.Time) (date.Date, bool) {
	if text == "" {
		return date.Date{}, false
	}

	lower := strings.ToLower(text)
	for _, m := range textMatchers {
		if d, ok := m(lower, now); ok {
			return d, true
		}
	}
	return date.Date{}, false
}

func matchExplicitISO(text string, _ time.Time) (date.Date, bool) {
	m := isoPattern.FindStringSubmatch(text)
	if m == nil {
		return date.Date{}, false
	}
	d, err := date.Parse(m[1])
	if err != nil {
		return date.Date{}, false
	}
	return d, true
}

func matchMonthDay(text string, now time.Time) (date.Date, bool) {
	m := monthPattern.FindStringSubmatch(text)
	if m == nil {
		return date.Date{}, false
	}

	month, ok := monthNames[m[1]]
	if !ok {
		return date.Date{}, false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return date.Date{}, false
	}
	year := now.Year()
	if m[3] != "" {
		year, err = strconv.Atoi(m[3])
		if err != nil {
			return date.Date{}, false
		}
	}

	d := date.New(year, month, day)
	// time.Date normalizes out-of-range days (Feb 30 becomes Mar 2);
	// treat that as no match so the next rule gets a chance.
	if d.Day() != day || d.Month() != month {
		return date.Date{}, false
	}
	return d, true
}

func matchRelative(text string, now time.Time) (date.Date, bool) {
	m := relativePattern.FindStringSubmatch(text)
	if m == nil {
		return date.Date{}, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return date.Date{}, false
	}

	days := n
	switch m[2] {
	case "week":
		days = n * 7
	case "month":
		days = n * 30 // months approximated as 30 days
	}
	return date.FromTime(now).AddDays(days), true
}

// naturalParser handles loose phrasings ("tomorrow", "next friday") that the
// fixed patterns above do not cover. Parsing is evaluated against the
// injected resolution time, so results stay deterministic.
var naturalParser = newNaturalParser()

func newNaturalParser() *when.Parser {
	p := when.New(nil)
	p.Add(en.All...)
	p.Add(common.All...)
	return p
}

// cuePattern marks text that is talking about a deadline at all. The
// natural-language rule only fires on text following such a cue: description
// and notes prose is full of incidental temporal phrases ("updated today",
// "met on monday") that must not become deadlines.
var cuePattern = regexp.MustCompile(`\b(?:deadline|due|by|before)\b`)

func matchNaturalLanguage(text string, now time.Time) (date.Date, bool) {
	loc := cuePattern.FindStringIndex(text)
	if loc == nil {
		return date.Date{}, false
	}
	r, err := naturalParser.Parse(text[loc[1]:], now)
	if err != nil || r == nil {
		return date.Date{}, false
	}
	return date.FromTime(r.Time), true
}
