package macro

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// maxExcelSerial bounds the serial-number date range; larger values are
// not calendar dates.
const maxExcelSerial = 100000

// ParseDate normalizes a date cell to ISO YYYY-MM-DD. It accepts ISO dates
// (with or without a time part), DD/MM/YYYY, and raw Excel serial numbers.
// Years outside 1900-2100 and unparseable values report ok=false; callers
// drop the affected invoice rather than guessing.
func ParseDate(v string) (iso string, ok bool) {
	s := strings.TrimSpace(v)
	if isBlank(s) {
		return "", false
	}
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return checkYear(t)
		}
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return checkYear(t)
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return checkYear(t)
		}
	}
	return "", false
}

func checkYear(t time.Time) (string, bool) {
	if y := t.Year(); y < 1900 || y > 2100 {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
