// Package docid validates Spanish and EU tax identification documents
// (NIF, CIF, NIE, NIF-IVA) using their official checksum algorithms.
//
// All validators are tolerant of separators and casing: input is cleaned
// with Clean before any structural check. A failed validation always yields
// a typed Result with a human-readable reason, never an error, so batch
// validation of many documents cannot be interrupted by one bad document.
package docid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"macrofact/internal/domain"
)

var (
	nifPattern = regexp.MustCompile(`^\d{8}[A-Z]$`)
	cifPattern = regexp.MustCompile(`^[ABCDEFGHJNPQRSUVW]\d{7}[0-9A-J]$`)
	niePattern = regexp.MustCompile(`^[XYZ]\d{7}[A-Z]$`)
	ivaPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

	separators = regexp.MustCompile(`[\s\-._]`)
)

// nifControlLetters indexes the NIF/NIE control letter by number mod 23.
const nifControlLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// cifControlLetters indexes the CIF control letter by the computed digit.
const cifControlLetters = "JABCDEFGHI"

// cifLetterControl lists the CIF leading letters whose control character is a
// letter instead of a digit.
var cifLetterControl = map[byte]bool{
	'P': true, 'Q': true, 'R': true, 'S': true, 'W': true,
	'K': true, 'L': true, 'M': true,
}

// euCountryCodes is the set of EU VAT country prefixes accepted in a NIF-IVA.
var euCountryCodes = map[string]bool{
	"AT": true, "BE": true, "BG": true, "CY": true, "CZ": true, "DE": true,
	"DK": true, "EE": true, "ES": true, "FI": true, "FR": true, "GR": true,
	"HR": true, "HU": true, "IE": true, "IT": true, "LT": true, "LU": true,
	"LV": true, "MT": true, "NL": true, "PL": true, "PT": true, "RO": true,
	"SE": true, "SI": true, "SK": true,
}

// Result is the outcome of validating a single document.
type Result struct {
	Valid  bool
	Type   domain.DocumentType
	Reason string
}

func pass(t domain.DocumentType) Result {
	return Result{Valid: true, Type: t}
}

func fail(t domain.DocumentType, reason string) Result {
	return Result{Valid: false, Type: t, Reason: reason}
}

// Clean strips whitespace, hyphens, dots and underscores and upper-cases the
// document. Cleaning an already-clean document returns it unchanged.
func Clean(doc string) string {
	return separators.ReplaceAllString(strings.ToUpper(strings.TrimSpace(doc)), "")
}

// ValidateNIF checks an 8-digit + control-letter personal tax id.
func ValidateNIF(nif string) Result {
	s := Clean(nif)
	if s == "" {
		return fail(domain.DocNIF, "empty document")
	}
	if !nifPattern.MatchString(s) {
		return fail(domain.DocNIF, "invalid format: expected 8 digits + 1 control letter (e.g. 12345678Z)")
	}

	num, err := strconv.Atoi(s[:8])
	if err != nil {
		return fail(domain.DocNIF, "invalid number part")
	}
	want := nifControlLetters[num%23]
	if s[8] != want {
		return fail(domain.DocNIF, fmt.Sprintf("control letter mismatch: expected %q, got %q", string(want), string(s[8])))
	}
	return pass(domain.DocNIF)
}

// cifControl computes the CIF control digit from the 7-digit number part.
// Digits at even 0-based positions are doubled and digit-summed; digits at
// odd positions are summed as-is; control = (10 - units(total)) mod 10.
func cifControl(number string) int {
	sum := 0
	for i := 0; i < len(number); i++ {
		d := int(number[i] - '0')
		if i%2 == 0 {
			d *= 2
			sum += d/10 + d%10
		} else {
			sum += d
		}
	}
	return (10 - sum%10) % 10
}

// ValidateCIF checks a corporate tax id: leading letter + 7 digits + control
// character. Leading letters P, Q, R, S, W, K, L and M take a letter control;
// all others take the computed digit.
func ValidateCIF(cif string) Result {
	s := Clean(cif)
	if s == "" {
		return fail(domain.DocCIF, "empty document")
	}
	if !cifPattern.MatchString(s) {
		return fail(domain.DocCIF, "invalid format: expected 1 letter + 7 digits + 1 control character")
	}

	digit := cifControl(s[1:8])
	control := s[8]

	if cifLetterControl[s[0]] {
		want := cifControlLetters[digit]
		if control != want {
			return fail(domain.DocCIF, fmt.Sprintf("control character mismatch: expected %q, got %q", string(want), string(control)))
		}
		return pass(domain.DocCIF)
	}
	if control != byte('0'+digit) {
		return fail(domain.DocCIF, fmt.Sprintf("control character mismatch: expected %q, got %q", strconv.Itoa(digit), string(control)))
	}
	return pass(domain.DocCIF)
}

// nieDigit maps the NIE letter prefix to its numeric replacement.
var nieDigit = map[byte]string{'X': "0", 'Y': "1", 'Z': "2"}

// ValidateNIE checks a foreigner id: X/Y/Z + 7 digits + control letter. The
// prefix is mapped to 0/1/2 and the result validated like a NIF.
func ValidateNIE(nie string) Result {
	s := Clean(nie)
	if s == "" {
		return fail(domain.DocNIE, "empty document")
	}
	if !niePattern.MatchString(s) {
		return fail(domain.DocNIE, "invalid format: expected X/Y/Z + 7 digits + 1 control letter (e.g. X1234567L)")
	}

	num, err := strconv.Atoi(nieDigit[s[0]] + s[1:8])
	if err != nil {
		return fail(domain.DocNIE, "invalid number part")
	}
	want := nifControlLetters[num%23]
	if s[8] != want {
		return fail(domain.DocNIE, fmt.Sprintf("control letter mismatch: expected %q, got %q", string(want), string(s[8])))
	}
	return pass(domain.DocNIE)
}

// ValidateNIFIVA checks an EU VAT id: 2-letter country code + national
// document. Spanish documents are dispatched to NIF/CIF/NIE by shape; other
// countries get a structural check only (alphanumeric, 2-15 characters).
func ValidateNIFIVA(nifIVA string) Result {
	s := Clean(nifIVA)
	if s == "" {
		return fail(domain.DocNIFIVA, "empty document")
	}
	if len(s) < 2 {
		return fail(domain.DocNIFIVA, "missing 2-letter country code")
	}

	country := s[:2]
	if !euCountryCodes[country] {
		return fail(domain.DocNIFIVA, fmt.Sprintf("country code %q is not a valid EU VAT prefix", country))
	}

	doc := s[2:]
	if doc == "" {
		return fail(domain.DocNIFIVA, fmt.Sprintf("missing identification number after country code %q", country))
	}

	if country == "ES" {
		var inner Result
		switch {
		case nifPattern.MatchString(doc):
			inner = ValidateNIF(doc)
		case cifPattern.MatchString(doc):
			inner = ValidateCIF(doc)
		case niePattern.MatchString(doc):
			inner = ValidateNIE(doc)
		default:
			return fail(domain.DocNIFIVA, "ES prefix must be followed by a valid NIF, CIF or NIE")
		}
		if !inner.Valid {
			return fail(domain.DocNIFIVA, inner.Reason)
		}
		return pass(domain.DocNIFIVA)
	}

	if len(doc) < 2 {
		return fail(domain.DocNIFIVA, fmt.Sprintf("identification number for %s must have at least 2 characters", country))
	}
	if len(doc) > 15 {
		return fail(domain.DocNIFIVA, fmt.Sprintf("identification number for %s is too long (max 15 characters)", country))
	}
	if !ivaPattern.MatchString(doc) {
		return fail(domain.DocNIFIVA, fmt.Sprintf("identification number for %s may only contain letters and digits", country))
	}
	return pass(domain.DocNIFIVA)
}

// Validate auto-detects the document type by shape and runs the matching
// validator. NIF-IVA is tried first (by country-code prefix), then NIF, CIF
// and NIE. Unrecognized shapes fail with a generic reason.
func Validate(doc string) Result {
	s := Clean(doc)
	if s == "" {
		return Result{Valid: false, Reason: "empty document"}
	}

	switch {
	case len(s) > 2 && euCountryCodes[s[:2]]:
		return ValidateNIFIVA(s)
	case nifPattern.MatchString(s):
		return ValidateNIF(s)
	case cifPattern.MatchString(s):
		return ValidateCIF(s)
	case niePattern.MatchString(s):
		return ValidateNIE(s)
	default:
		return Result{Valid: false, Reason: "unrecognized format: expected NIF, CIF, NIE or NIF-IVA"}
	}
}
