package stats

import (
	"strings"
	"time"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
)

// WeekdayOrder is the canonical Monday-first ordering.
var WeekdayOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// Labels holds display names for buckets, weekdays and table columns.
type Labels struct {
	Inside   string
	Outside  string
	Columns  Columns
	weekdays [7]string
}

// Columns names the headers of the report tables.
type Columns struct {
	Bucket  string
	Users   string
	Percent string
	Week    string
	Weekday string
	Hour    string
	Total   string
}

var localeLabels = map[string]Labels{
	"en": {
		Inside:  "Inside",
		Outside: "Outside",
		Columns: Columns{
			Bucket:  "Bucket",
			Users:   "Users",
			Percent: "Percent",
			Week:    "Week",
			Weekday: "Weekday",
			Hour:    "Hour",
			Total:   "Total",
		},
		weekdays: [7]string{
			"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
		},
	},
	"pt": {
		Inside:  "Dentro",
		Outside: "Fora",
		Columns: Columns{
			Bucket:  "Horário",
			Users:   "Usuários únicos",
			Percent: "Percentual (%)",
			Week:    "Semana",
			Weekday: "Dia",
			Hour:    "Hora",
			Total:   "Total",
		},
		weekdays: [7]string{
			"Domingo", "Segunda-feira", "Terça-feira", "Quarta-feira", "Quinta-feira", "Sexta-feira", "Sábado",
		},
	},
}

// Locales lists the supported label locales.
func Locales() []string {
	return []string{"en", "pt"}
}

// LabelsFor returns labels for locale, falling back to English.
func LabelsFor(locale string) Labels {
	if l, ok := localeLabels[localeBase(locale)]; ok {
		return l
	}
	return localeLabels["en"]
}

// SupportedLocale reports whether locale, ignoring case and any region
// suffix ("pt-BR", "pt_br"), has its own labels.
func SupportedLocale(locale string) bool {
	_, ok := localeLabels[localeBase(locale)]
	return ok
}

func localeBase(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}

// Bucket returns the display name of b.
func (l Labels) Bucket(b model.Bucket) string {
	if b == model.Inside {
		return l.Inside
	}
	return l.Outside
}

// Weekday returns the display name of d.
func (l Labels) Weekday(d time.Weekday) string {
	return l.weekdays[d]
}
