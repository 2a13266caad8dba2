package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	explicitDateRE = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?`)
	monthNameRE    = regexp.MustCompile(`(\d{1,2})\s+de\s+([a-zçã]+)`)
	dayOnlyRE      = regexp.MustCompile(`dia\s+(\d{1,2})`)

	clockRE    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	hourMarkRE = regexp.MustCompile(`(\d{1,2})h(\d{2})?`)
	periodRE   = regexp.MustCompile(`(\d{1,2})\s+(?:da\s+)?(manhã|manha|tarde|noite)`)

	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRE = regexp.MustCompile(`(?:\+?55\s*)?(?:\(?\d{2}\)?\s*)?\d{4,5}[\s\-]?\d{4}`)
	nameRE  = regexp.MustCompile(`(?i)(?:^|\s)(?:meu nome é|meu nome e|me chamo|eu sou|sou)\s+([a-zA-ZÀ-ÿ]+(?:\s+[a-zA-ZÀ-ÿ]+)*)`)

	bareIndexRE   = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)
	optionIndexRE = regexp.MustCompile(`(?:opção|opcao|número|numero|horário|horario)\s+(\d{1,2})`)

	// Ordinal words only count standalone or next to an option noun:
	// the feminine forms double as weekday names ("segunda-feira").
	ordinalOptionRE = regexp.MustCompile(`(?:^|\s)(primeir[oa]|segund[oa]|terceir[oa]|quart[oa]|quint[oa]|sext[oa])\s+(?:opção|opcao|horário|horario)`)
	ordinalAloneRE  = regexp.MustCompile(`^(?:n?[oa]\s+)?(primeir[oa]|segund[oa]|terceir[oa]|quart[oa]|quint[oa]|sext[oa])\s*[.!?]*$`)
)

var monthsByName = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "março": time.March,
	"marco": time.March, "abril": time.April, "maio": time.May,
	"junho": time.June, "julho": time.July, "agosto": time.August,
	"setembro": time.September, "outubro": time.October,
	"novembro": time.November, "dezembro": time.December,
}

var ordinalWords = map[string]int{
	"primeiro": 1, "primeira": 1, "segundo": 2, "segunda": 2,
	"terceiro": 3, "terceira": 3, "quarto": 4, "quarta": 4,
	"quinto": 5, "quinta": 5, "sexto": 6, "sexta": 6,
}

var affirmativeWords = []string{"sim", "confirmo", "confirma", "confirmar", "ok", "pode ser", "claro", "isso", "quero"}
var negativeWords = []string{"não", "nao", "cancela", "cancelar", "desisto", "deixa"}

// parseDate resolves a single date reference. Dates without a year roll to
// the next year when they have already passed; "dia N" without a month rolls
// to the next month.
func parseDate(text string, now time.Time, loc *time.Location) (time.Time, bool) {
	lower := strings.ToLower(text)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch {
	case strings.Contains(lower, "depois de amanhã"), strings.Contains(lower, "depois de amanha"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(lower, "amanhã"), strings.Contains(lower, "amanha"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(lower, "hoje"):
		return today, true
	}

	if m := explicitDateRE.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		d, ok := buildDate(year, time.Month(month), day, loc)
		if !ok {
			return time.Time{}, false
		}
		if m[3] == "" && d.Before(today) {
			d = d.AddDate(1, 0, 0)
		}
		return d, true
	}

	if m := monthNameRE.FindStringSubmatch(lower); m != nil {
		if month, ok := monthsByName[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			d, ok := buildDate(now.Year(), month, day, loc)
			if !ok {
				return time.Time{}, false
			}
			if d.Before(today) {
				d = d.AddDate(1, 0, 0)
			}
			return d, true
		}
	}

	if m := dayOnlyRE.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		d, ok := buildDate(now.Year(), now.Month(), day, loc)
		if !ok {
			return time.Time{}, false
		}
		if d.Before(today) {
			d = d.AddDate(0, 1, 0)
		}
		return d, true
	}

	return time.Time{}, false
}

// parseDateRange resolves an inclusive date interval. Two explicit dates form
// a range; a single date reference collapses to a one-day range; week words
// expand to seven days.
func parseDateRange(text string, now time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	lower := strings.ToLower(text)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch {
	case strings.Contains(lower, "próxima semana"), strings.Contains(lower, "proxima semana"),
		strings.Contains(lower, "semana que vem"):
		start := today.AddDate(0, 0, 7)
		return start, start.AddDate(0, 0, 6), true
	case strings.Contains(lower, "essa semana"), strings.Contains(lower, "esta semana"):
		return today, today.AddDate(0, 0, 6), true
	}

	matches := explicitDateRE.FindAllStringSubmatch(lower, 2)
	if len(matches) == 2 {
		start, ok1 := parseDate(matches[0][0], now, loc)
		end, ok2 := parseDate(matches[1][0], now, loc)
		if ok1 && ok2 {
			if end.Before(start) {
				start, end = end, start
			}
			return start, end, true
		}
	}

	if d, ok := parseDate(text, now, loc); ok {
		return d, d, true
	}
	return time.Time{}, time.Time{}, false
}

// parseTimeOfDay resolves "14:30", "14h30", "14h" and "2 da tarde" style
// references into a 24h clock time.
func parseTimeOfDay(text string) (hour, minute int, ok bool) {
	lower := strings.ToLower(text)

	if m := clockRE.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
	} else if m := hourMarkRE.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
	} else if m := periodRE.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
	} else {
		return 0, 0, false
	}

	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	if hour < 12 && (strings.Contains(lower, "tarde") || strings.Contains(lower, "noite")) {
		hour += 12
	}
	return hour, minute, true
}

func parseEmail(text string) (string, bool) {
	if m := emailRE.FindString(text); m != "" {
		return strings.ToLower(m), true
	}
	return "", false
}

func parsePhone(text string) (string, bool) {
	// Emails contain digit runs that look like phones; strip them first.
	cleaned := emailRE.ReplaceAllString(text, "")
	m := phoneRE.FindString(cleaned)
	if m == "" {
		return "", false
	}
	var digits strings.Builder
	for _, r := range m {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 10 {
		return "", false
	}
	return d, true
}

// parseName prefers an explicit introduction ("me chamo X"); otherwise, when
// the message also carries an email, whatever text remains after removing the
// email and filler is taken as the name, the usual shape of a "name + email
// in one message" reply.
func parseName(text string) (string, bool) {
	if m := nameRE.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" {
			return cleanName(name), true
		}
	}

	if _, hasEmail := parseEmail(text); hasEmail {
		remainder := emailRE.ReplaceAllString(text, "")
		remainder = phoneRE.ReplaceAllString(remainder, "")
		remainder = strings.Trim(remainder, " ,.;:-")
		if remainder != "" && !strings.ContainsAny(remainder, "0123456789@") {
			return cleanName(remainder), true
		}
	}
	return "", false
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	// Drop trailing connective fragments like "e meu email".
	for _, cut := range []string{" e meu", " meu email", " email", " e o"} {
		if idx := strings.Index(strings.ToLower(name), cut); idx > 0 {
			name = name[:idx]
		}
	}
	return strings.TrimSpace(name)
}

func parseConfirmation(text string) (affirmed, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			return false, true
		}
	}
	for _, w := range affirmativeWords {
		if lower == w || strings.HasPrefix(lower, w+" ") || strings.HasPrefix(lower, w+",") || strings.HasPrefix(lower, w+"!") {
			return true, true
		}
	}
	return false, false
}

// parseOrdinal resolves a slot choice by bare number, "opção N" or ordinal word.
func parseOrdinal(text string) (int, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))

	if m := bareIndexRE.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := optionIndexRE.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := ordinalOptionRE.FindStringSubmatch(lower); m != nil {
		return ordinalWords[m[1]], true
	}
	if m := ordinalAloneRE.FindStringSubmatch(lower); m != nil {
		return ordinalWords[m[1]], true
	}
	return 0, false
}

// buildDate validates the calendar date (rejects 31/02 style rollover).
func buildDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}
