package crawler

import (
	"net/http"
	"strings"
	"time"
)

// Weekdays lists the canonical day keys of Hours in output order.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Columns is the fixed output schema shared by every snapshot sink.
var Columns = []string{
	"Category",
	"Business name",
	"Street",
	"Number",
	"Postal code",
	"City",
	"Phone 1",
	"Phone 2",
	"Mobile 1",
	"Mobile 2",
	"Mail",
	"Web url",
	"Instagram",
	"Facebook",
	"TikTok",
	"Linkedin",
	"Business hours Monday",
	"Business hours Tuesday",
	"Business hours Wednesday",
	"Business hours Thursday",
	"Business hours Friday",
	"Business hours Saturday",
	"Business hours Sunday",
	"Latitude",
	"Longitude",
	"Main image of the business",
}

// SearchUnit is one (area, category) query executed against the directory.
type SearchUnit struct {
	Area       string `json:"area"`
	Category   string `json:"category"`
	PostalHint string `json:"postal_hint"`
}

// Query composes the free-text search submitted for the unit.
func (u SearchUnit) Query(country string) string {
	parts := []string{u.Category, "near", u.PostalHint, u.Area}
	if strings.TrimSpace(country) != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, " ")
}

// Key identifies the unit for ledgers and logs.
func (u SearchUnit) Key() string {
	return u.Area + "|" + u.Category
}

// Hours maps each canonical weekday to its free-text opening hours.
type Hours map[string]string

// NewHours returns Hours with all seven day keys present and empty.
func NewHours() Hours {
	h := make(Hours, len(Weekdays))
	for _, day := range Weekdays {
		h[day] = ""
	}
	return h
}

// Set records text for day when day is one of the canonical weekdays.
// Matching is case-insensitive; unknown labels are ignored and reported false.
func (h Hours) Set(day, text string) bool {
	for _, canonical := range Weekdays {
		if strings.EqualFold(canonical, strings.TrimSpace(day)) {
			h[canonical] = text
			return true
		}
	}
	return false
}

// Socials holds the first profile link found per network.
type Socials struct {
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	TikTok    string `json:"tiktok"`
	LinkedIn  string `json:"linkedin"`
}

// Listing is the record extracted for one business.
type Listing struct {
	Category   string  `json:"category"`
	Name       string  `json:"name"`
	Street     string  `json:"street"`
	Number     string  `json:"number"`
	PostalCode string  `json:"postal_code"`
	City       string  `json:"city"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
	Website    string  `json:"website"`
	Socials    Socials `json:"socials"`
	Hours      Hours   `json:"hours"`
	Latitude   string  `json:"latitude"`
	Longitude  string  `json:"longitude"`
	Image      string  `json:"image"`
}

// Row flattens the listing into the Columns order. Phone 2 and the mobile
// columns are always empty.
func (l Listing) Row() []string {
	row := make([]string, 0, len(Columns))
	row = append(row,
		l.Category, l.Name, l.Street, l.Number, l.PostalCode, l.City,
		l.Phone, "", "", "",
		l.Email, l.Website,
		l.Socials.Instagram, l.Socials.Facebook, l.Socials.TikTok, l.Socials.LinkedIn,
	)
	for _, day := range Weekdays {
		row = append(row, l.Hours[day])
	}
	return append(row, l.Latitude, l.Longitude, l.Image)
}

// Rows flattens listings in order.
func Rows(listings []Listing) [][]string {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, l.Row())
	}
	return rows
}

// FetchRequest describes a single HTTP GET issued through a Fetcher.
type FetchRequest struct {
	URL     string
	Timeout time.Duration
	Headers http.Header
}

// FetchResponse captures the outcome of a single HTTP GET.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the response Content-Type header, if any.
func (r FetchResponse) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// OK reports whether the status code is 2xx.
func (r FetchResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// SnapshotKind labels why a snapshot was written.
type SnapshotKind string

// Snapshot kinds; SnapshotPlain is the unlabeled snapshot of a normal completion.
const (
	SnapshotPartial     SnapshotKind = "partial"
	SnapshotPlain       SnapshotKind = ""
	SnapshotInterrupted SnapshotKind = "interrupted"
	SnapshotFinal       SnapshotKind = "final"
)

// String returns a printable label for logs and metrics.
func (k SnapshotKind) String() string {
	if k == SnapshotPlain {
		return "complete"
	}
	return string(k)
}

// Snapshot describes a persisted full rewrite of the accumulated listings.
type Snapshot struct {
	Kind      SnapshotKind `json:"kind"`
	Path      string       `json:"path"`
	Rows      int          `json:"rows"`
	WrittenAt time.Time    `json:"written_at"`
}
