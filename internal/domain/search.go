package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// ListingSearchParams filters GET /api/listings. Nil fields are left out of
// the query string entirely.
type ListingSearchParams struct {
	Query     *string
	Condition *string
	MinPrice  *float64
	MaxPrice  *float64
}

func String(s string) *string { return &s }

func Float(f float64) *float64 { return &f }

// Values encodes the defined fields as URL query parameters.
func (p ListingSearchParams) Values() url.Values {
	v := url.Values{}
	if p.Query != nil {
		v.Set("query", *p.Query)
	}
	if p.Condition != nil {
		v.Set("condition", *p.Condition)
	}
	if p.MinPrice != nil {
		v.Set("minPrice", formatNumber(*p.MinPrice))
	}
	if p.MaxPrice != nil {
		v.Set("maxPrice", formatNumber(*p.MaxPrice))
	}
	return v
}

// Encode returns the query string in a stable key order; it doubles as the
// cache key of the search.
func (p ListingSearchParams) Encode() string {
	return p.Values().Encode()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ImageURL joins a server-relative image path with the API base URL. It
// returns "" for empty paths or when the result is not a valid URL.
func ImageURL(baseURL, imagePath string) string {
	clean := strings.TrimSpace(imagePath)
	if clean == "" {
		return ""
	}
	base := baseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	full := base + strings.TrimPrefix(clean, "/")
	u, err := url.Parse(full)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.String()
}
