package macro

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"macrofact/internal/domain"
)

var (
	plainNumber   = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?$`)
	wholeNumber   = regexp.MustCompile(`^\d+(\.0+)?$`)
	clientPrefix  = regexp.MustCompile(`(?i)^\s*(CIF|NIF)\s*[:\-]?\s*`)
	issuerPrefix  = regexp.MustCompile(`^(CIF|NIF)\s*`)
	taxSeparators = regexp.MustCompile(`[\s\-._]`)
	whitespace    = regexp.MustCompile(`\s+`)
	postalCode    = regexp.MustCompile(`^\d{4,6}$`)
	countryPrefix = regexp.MustCompile(`^([A-Z]{2})`)
)

// blankMarkers are cell values that spreadsheets use to mean "no value".
var blankMarkers = map[string]bool{
	"none": true, "nan": true, "null": true,
	"#n/a": true, "#n/d": true, "-": true, "—": true,
}

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || blankMarkers[strings.ToLower(s)]
}

// CoerceNumber parses an amount cell. Plain decimal and scientific notation
// are taken as-is; otherwise the value is read as a European-formatted number
// (dots as thousand separators, comma as decimal separator). Anything else
// coerces to zero.
func CoerceNumber(v string) float64 {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0
	}
	if plainNumber.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	cleaned := strings.ReplaceAll(s, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return f
	}
	return 0
}

// NormalizeInvoiceNumber collapses numeric invoice ids to their integer form
// ("123.0" becomes "123") and leaves alphanumeric ids trimmed but untouched.
func NormalizeInvoiceNumber(v string) string {
	s := strings.TrimSpace(v)
	if wholeNumber.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return s
}

// KindOf classifies an invoice by its number prefix: "Int" marks interest
// invoices, "A" marks intra-community ones, everything else is normal.
func KindOf(number string) domain.InvoiceKind {
	switch {
	case strings.HasPrefix(number, "Int"):
		return domain.KindIntereses
	case strings.HasPrefix(number, "A"):
		return domain.KindIntra
	default:
		return domain.KindNormal
	}
}

// CleanClientTaxID strips a leading CIF/NIF label and all whitespace from a
// client tax id cell.
func CleanClientTaxID(v string) string {
	s := clientPrefix.ReplaceAllString(v, "")
	return whitespace.ReplaceAllString(s, "")
}

// NormalizeIssuerTaxID canonicalizes an issuer CIF for matching: upper-cased,
// label and ES country prefix stripped, separators removed.
func NormalizeIssuerTaxID(v string) string {
	s := strings.ToUpper(strings.TrimSpace(v))
	s = issuerPrefix.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "ES")
	return taxSeparators.ReplaceAllString(s, "")
}

// SplitList splits a comma-separated cell into trimmed non-empty items.
func SplitList(v string) []string {
	if isBlank(v) {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitPostalProvince splits a combined "41004 Sevilla" or "Sevilla 41004"
// cell into postal code and province. Without a recognizable postal code the
// whole value is returned as the province.
func SplitPostalProvince(v string) (cp, province string) {
	s := strings.TrimSpace(v)
	if s == "" {
		return "", ""
	}
	t := strings.Fields(s)
	if postalCode.MatchString(t[len(t)-1]) {
		return t[len(t)-1], strings.Join(t[:len(t)-1], " ")
	}
	if postalCode.MatchString(t[0]) {
		return t[0], strings.Join(t[1:], " ")
	}
	return "", s
}

// FoldText lower-cases and strips diacritics so header and name comparisons
// are accent-insensitive.
func FoldText(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.ReplaceAll(s, "�", "n")
}

// iso2to3 maps the 2-letter country prefix of an intra-community tax id to
// the ISO-3166 alpha-3 code the submission API expects.
var iso2to3 = map[string]string{
	"AT": "AUT", "BE": "BEL", "BG": "BGR", "CY": "CYP", "CZ": "CZE",
	"DE": "DEU", "DK": "DNK", "EE": "EST", "ES": "ESP", "FI": "FIN",
	"FR": "FRA", "GR": "GRC", "EL": "GRC", "HR": "HRV", "HU": "HUN",
	"IE": "IRL", "IT": "ITA", "LT": "LTU", "LU": "LUX", "LV": "LVA",
	"MT": "MLT", "NL": "NLD", "PL": "POL", "PT": "PRT", "RO": "ROU",
	"SE": "SWE", "SI": "SVN", "SK": "SVK", "GB": "GBR", "UK": "GBR",
	"NO": "NOR", "CH": "CHE", "US": "USA", "CN": "CHN",
}

// CountryISO3 resolves the alpha-3 country code for a cleaned tax id. Ids
// without a 2-letter prefix, and unknown prefixes, resolve to ESP.
func CountryISO3(taxID string) string {
	iso2 := "ES"
	if m := countryPrefix.FindStringSubmatch(taxID); m != nil {
		iso2 = m[1]
	}
	if iso3, ok := iso2to3[iso2]; ok {
		return iso3
	}
	return "ESP"
}
