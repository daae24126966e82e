package cleaner

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/use-agent/prodex/models"
)

var (
	// reLeadingNumber matches the numeric prefix of strings like "129.95 USD".
	reLeadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

	// reGrouped matches thousands-grouped amounts such as "1,299.00".
	reGrouped = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// Price coerces a decoded JSON value into a price. Numbers are accepted
// as-is, numeric strings are parsed, and everything else (including NaN
// and infinities) is reported as absent with a nil result.
func Price(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return finite(float64(t))
	case int64:
		return finite(float64(t))
	case json.Number:
		return parsePrice(t.String())
	case string:
		return parsePrice(t)
	}
	return nil
}

// FirstPrice returns the first of vals that coerces to a price.
func FirstPrice(vals ...any) *float64 {
	for _, v := range vals {
		if p := Price(v); p != nil {
			return p
		}
	}
	return nil
}

func parsePrice(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if reGrouped.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(f)
	}
	m := reLeadingNumber.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Currency returns the trimmed currency code, or models.DefaultCurrency
// when the source provided none.
func Currency(code string) string {
	if c := strings.TrimSpace(code); c != "" {
		return c
	}
	return models.DefaultCurrency
}
