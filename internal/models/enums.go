package models

import (
	"net/url"
	"strings"
)

type Brand string

type ProjectType string

type Status string

const (
	BrandWamiLive     Brand = "Wami Live"
	BrandLuckOnFourth Brand = "Luck On Fourth"
	BrandTheHideout   Brand = "The Hideout"
)

const (
	TypeFlyer      ProjectType = "Flyer"
	TypePromoVideo ProjectType = "Promo Video"
)

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Brands lists every brand in display order.
var Brands = []Brand{BrandWamiLive, BrandLuckOnFourth, BrandTheHideout}

var brandClients = map[Brand]string{
	BrandWamiLive:     "WAMI LIVE INC",
	BrandLuckOnFourth: "In And Out Gaming LLC",
	BrandTheHideout:   "The Hideout Gaming LLC",
}

// Client returns the billing name invoices for the brand are addressed to.
func (b Brand) Client() string {
	return brandClients[b]
}

func (b Brand) Valid() bool {
	_, ok := brandClients[b]
	return ok
}

// Slug is the URL-friendly form, e.g. "wami-live".
func (b Brand) Slug() string {
	return strings.ToLower(strings.Join(strings.Fields(string(b)), "-"))
}

// UpperSnake is the form used in exported file names, e.g. "WAMI_LIVE".
func (b Brand) UpperSnake() string {
	return strings.ToUpper(strings.Join(strings.Fields(string(b)), "_"))
}

// ParseBrand accepts the display name, its slug or its upper snake form,
// case-insensitively and possibly still path-escaped.
func ParseBrand(s string) (Brand, bool) {
	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}
	key := normalizeKey(s)
	for _, b := range Brands {
		if normalizeKey(string(b)) == key {
			return b, true
		}
	}
	return "", false
}

func (t ProjectType) Valid() bool {
	return t == TypeFlyer || t == TypePromoVideo
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus accepts "In Progress", "in_progress" and "in-progress" alike.
func ParseStatus(s string) (Status, bool) {
	key := normalizeKey(s)
	for _, st := range []Status{StatusPending, StatusInProgress, StatusCompleted} {
		if normalizeKey(string(st)) == key {
			return st, true
		}
	}
	return "", false
}

func normalizeKey(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
