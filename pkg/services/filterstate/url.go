package filterstate

import (
	"net/url"
	"strings"
	"time"

	"github.com/sari-tools/sales-atlas/pkg/models/domain"
)

// URL query keys. Key absence means "no filter" on that dimension.
const (
	keyFrom       = "from"
	keyTo         = "to"
	keyBarangays  = "barangays"
	keyCategories = "categories"
	keyBrands     = "brands"
	keyStores     = "stores"
)

const dateLayout = "2006-01-02"

// Encode serializes a FilterState into its canonical query values.
// Decode(Encode(fs)) round-trips the canonical form.
func Encode(fs domain.FilterState) url.Values {
	c := fs.Canonical()
	values := url.Values{}
	if c.From != nil {
		values.Set(keyFrom, c.From.Format(dateLayout))
	}
	if c.To != nil {
		values.Set(keyTo, c.To.Format(dateLayout))
	}
	setCSV(values, keyBarangays, c.Barangays)
	setCSV(values, keyCategories, c.Categories)
	setCSV(values, keyBrands, c.Brands)
	setCSV(values, keyStores, c.Stores)
	return values
}

// Decode parses query values into a FilterState. Unknown keys and
// malformed values are dropped silently.
func Decode(values url.Values) domain.FilterState {
	var fs domain.FilterState
	applyValues(&fs, values)
	return fs.Canonical()
}

func applyValues(fs *domain.FilterState, values map[string][]string) {
	for key, raw := range values {
		if len(raw) == 0 {
			continue
		}
		switch key {
		case keyFrom:
			if t, err := time.Parse(dateLayout, raw[0]); err == nil {
				t = t.UTC()
				fs.From = &t
			}
		case keyTo:
			if t, err := time.Parse(dateLayout, raw[0]); err == nil {
				// The upper bound is inclusive of the whole day.
				t = t.UTC().Add(24*time.Hour - time.Nanosecond)
				fs.To = &t
			}
		case keyBarangays:
			fs.Barangays = splitCSV(raw[0])
		case keyCategories:
			fs.Categories = splitCSV(raw[0])
		case keyBrands:
			fs.Brands = splitCSV(raw[0])
		case keyStores:
			fs.Stores = splitCSV(raw[0])
		}
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func setCSV(values url.Values, key string, items []string) {
	if len(items) > 0 {
		values.Set(key, strings.Join(items, ","))
	}
}
