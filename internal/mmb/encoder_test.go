package mmb

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseFigures() Figures {
	return Figures{
		InvoiceNumber: "1001",
		EmissionDate:  "2025-03-10",
		ClientName:    "Cliente Uno SL",
		ClientTaxID:   "B11111111",
		ClientCode:    "43000000001",
		Base:          1000,
		VATPct:        21,
		VATAmount:     210,
		Total:         1210,
	}
}

func TestRecordLayout(t *testing.T) {
	rec := Record(baseFigures(), Config{})
	require.Len(t, rec, RecordLength)

	assert.Equal(t, "V", rec[0:1])
	assert.Equal(t, "10/03/2025", rec[2:12])
	assert.Equal(t, "10/03/2025", rec[12:22])
	assert.Equal(t, " 1001", rec[32:37])
	assert.Equal(t, "43000000001", rec[44:55])
	assert.Equal(t, "B11111111", rec[60:69])
	assert.Equal(t, "CLIENTE UNO SL      ", rec[74:94])
	assert.Equal(t, "NTRA. FRA. N 1001 CL", rec[104:124])
	assert.Equal(t, " 1000,0", rec[143:150])
	assert.Equal(t, " 21,00 210,0", rec[158:170])
	assert.Equal(t, "47700000021", rec[178:189])
	assert.Equal(t, " 1210,0", rec[266:273])
	assert.Equal(t, "70500000000", rec[282:293])
	assert.Equal(t, "1000,00", rec[300:307])
	assert.Equal(t, byte('N'), rec[420])
	assert.Equal(t, byte('N'), rec[467])

	// everything between the defined fields is blank
	assert.Equal(t, strings.Repeat(" ", 10), rec[22:32])
	assert.Equal(t, strings.Repeat(" ", 77), rec[189:266])
	assert.Equal(t, strings.Repeat(" ", 113), rec[307:420])
}

func TestRecordIntraCommunity(t *testing.T) {
	f := baseFigures()
	f.InvoiceNumber = "A2500123"
	f.Base = 500
	f.VATPct = 0
	f.VATAmount = 0
	f.Total = 500

	rec := Record(f, Config{})
	require.Len(t, rec, RecordLength)

	assert.Equal(t, "25001", rec[32:37], "digits only, first five")
	assert.Equal(t, "  0,00   0,0", rec[158:170], "zero-rated")
	assert.Equal(t, strings.Repeat(" ", 11), rec[178:189], "no VAT account for intra-community")
	assert.Equal(t, " 500,00", rec[143:150])
	assert.Equal(t, " 500,00", rec[266:273], "total equals base")
}

func TestRecordIntraBySeries(t *testing.T) {
	f := baseFigures()
	f.Series = "A25"

	rec := Record(f, Config{})
	assert.Equal(t, strings.Repeat(" ", 11), rec[178:189])
}

func TestRecordBaseBackComputedFromTotal(t *testing.T) {
	f := baseFigures()
	f.Base = 0
	f.VATAmount = 0
	f.Total = 605

	rec := Record(f, Config{})
	assert.Equal(t, " 500,00", rec[143:150], "base = total / 1.21")
	assert.Equal(t, " 605,00", rec[266:273])
	assert.Equal(t, " 21,00 105,0", rec[158:170])
}

func TestRecordTotalRepair(t *testing.T) {
	f := baseFigures()
	f.VATAmount = 0
	f.Total = 1000 // inconsistent with base + VAT

	rec := Record(f, Config{})
	assert.Equal(t, " 1210,0", rec[266:273], "total replaced by base + VAT")
}

func TestRecordFallbackAmount(t *testing.T) {
	f := baseFigures()
	f.Base = 0
	f.VATAmount = 0
	f.Total = 0
	f.FallbackAmount = 121

	rec := Record(f, Config{})
	assert.Equal(t, " 121,00", rec[143:150], "store amount becomes the base")
	assert.Equal(t, " 146,41", rec[266:273], "total rebuilt as base + VAT")
}

func TestRecordVATAccountSelection(t *testing.T) {
	f := baseFigures()
	f.VATPct = 10
	f.VATAmount = 100
	f.Total = 1100
	rec := Record(f, Config{})
	assert.Equal(t, "47700000010", rec[178:189])

	// unknown rates post to the 21% account
	f.VATPct = 7.5
	f.VATAmount = 75
	f.Total = 1075
	rec = Record(f, Config{})
	assert.Equal(t, "47700000021", rec[178:189])

	rec = Record(baseFigures(), Config{VATCode21: "47700000099"})
	assert.Equal(t, "47700000099", rec[178:189])
}

func TestRecordDateHandling(t *testing.T) {
	t.Run("already spanish format", func(t *testing.T) {
		f := baseFigures()
		f.EmissionDate = "10/03/2025"
		rec := Record(f, Config{})
		assert.Equal(t, "10/03/2025", rec[2:12])
	})

	t.Run("unix timestamp", func(t *testing.T) {
		f := baseFigures()
		f.EmissionDate = "1741608000" // 2025-03-10 12:00 UTC
		rec := Record(f, Config{})
		assert.Equal(t, "10/03/2025", rec[2:12])
	})

	t.Run("unparseable falls back to today", func(t *testing.T) {
		f := baseFigures()
		f.EmissionDate = "pendiente"
		rec := Record(f, Config{})
		assert.Equal(t, time.Now().Format("02/01/2006"), rec[2:12])
	})
}

func TestRecordsConcatenate(t *testing.T) {
	blob := Record(baseFigures(), Config{}) + Record(baseFigures(), Config{})
	assert.Len(t, blob, 2*RecordLength)
	assert.Equal(t, "V", blob[RecordLength:RecordLength+1])
}

func TestClientAccountCode(t *testing.T) {
	t.Run("spanish nif digits", func(t *testing.T) {
		assert.Equal(t, "43012345678", ClientAccountCode("12345678Z"))
		assert.Equal(t, "43012345678", ClientAccountCode("12.345.678-Z"))
	})

	t.Run("non numeric ids hash deterministically", func(t *testing.T) {
		code := ClientAccountCode("B12345674")
		assert.Len(t, code, 11)
		assert.True(t, strings.HasPrefix(code, "430"))
		assert.Equal(t, code, ClientAccountCode("B12345674"))
		assert.NotEqual(t, code, ClientAccountCode("B12345675"))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "00000000000", ClientAccountCode(""))
	})
}
