package mmb

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

// ClientAccountCode derives an 11-character client accounting code from a
// tax id. Spanish personal/corporate ids contribute their first 8 digits
// after the 430 prefix; anything else gets a deterministic hash so the same
// client always maps to the same account.
func ClientAccountCode(taxID string) string {
	if strings.TrimSpace(taxID) == "" {
		return "00000000000"
	}
	cleaned := nonAlnum.ReplaceAllString(strings.ToUpper(taxID), "")
	if len(cleaned) >= 8 && allDigits(cleaned[:8]) {
		code := "430" + cleaned[:8]
		for len(code) < 11 {
			code += "0"
		}
		return code[:11]
	}
	h := fnv.New32a()
	h.Write([]byte(cleaned))
	return fmt.Sprintf("430%08d", h.Sum32()%100000000)
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
