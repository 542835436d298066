package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"macrofact/internal/domain"
)

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain integer", "1200", 1200},
		{"plain decimal", "1200.50", 1200.50},
		{"scientific notation", "1.2e3", 1200},
		{"negative", "-42.5", -42.5},
		{"european format", "1.200,50", 1200.50},
		{"comma decimal", "99,95", 99.95},
		{"empty", "", 0},
		{"whitespace", "   ", 0},
		{"garbage", "n/a", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CoerceNumber(tt.input), 1e-9)
		})
	}
}

func TestNormalizeInvoiceNumber(t *testing.T) {
	assert.Equal(t, "123", NormalizeInvoiceNumber("123"))
	assert.Equal(t, "123", NormalizeInvoiceNumber("123.0"))
	assert.Equal(t, "123", NormalizeInvoiceNumber(" 123.000 "))
	assert.Equal(t, "A2500123", NormalizeInvoiceNumber("A2500123"))
	assert.Equal(t, "123.5", NormalizeInvoiceNumber("123.5"))
	assert.Equal(t, "", NormalizeInvoiceNumber("  "))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, domain.KindIntereses, KindOf("Int2025-1"))
	assert.Equal(t, domain.KindIntra, KindOf("A2500123"))
	assert.Equal(t, domain.KindNormal, KindOf("1001"))
	assert.Equal(t, domain.KindNormal, KindOf("B77"))
}

func TestCleanClientTaxID(t *testing.T) {
	assert.Equal(t, "B12345674", CleanClientTaxID("CIF: B12345674"))
	assert.Equal(t, "B12345674", CleanClientTaxID("nif - B 123 456 74"))
	assert.Equal(t, "DE123456789", CleanClientTaxID(" DE 123456789 "))
}

func TestNormalizeIssuerTaxID(t *testing.T) {
	assert.Equal(t, "B12345674", NormalizeIssuerTaxID("b-12.345_674"))
	assert.Equal(t, "B12345674", NormalizeIssuerTaxID("ES B12345674"))
	assert.Equal(t, "B12345674", NormalizeIssuerTaxID("CIF B12345674"))
	assert.Equal(t, "", NormalizeIssuerTaxID("   "))
}

func TestSplitPostalProvince(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		cp, prov string
	}{
		{"cp last", "Sevilla 41004", "41004", "Sevilla"},
		{"cp first", "41004 Sevilla", "41004", "Sevilla"},
		{"multi word province", "28001 Madrid Centro", "28001", "Madrid Centro"},
		{"no cp", "Sevilla", "", "Sevilla"},
		{"empty", "  ", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, prov := SplitPostalProvince(tt.input)
			assert.Equal(t, tt.cp, cp)
			assert.Equal(t, tt.prov, prov)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"7", "IntA"}, SplitList("7, IntA,"))
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("nan"))
}

func TestFoldText(t *testing.T) {
	assert.Equal(t, "facturas emitidas", FoldText("  Facturas Emitidas "))
	assert.Equal(t, "abonos 2024", FoldText("ABONOS 2024"))
	assert.Equal(t, "espana", FoldText("España"))
}

func TestCountryISO3(t *testing.T) {
	assert.Equal(t, "DEU", CountryISO3("DE123456789"))
	assert.Equal(t, "PRT", CountryISO3("PT500123456"))
	assert.Equal(t, "ESP", CountryISO3("B12345674"))
	assert.Equal(t, "ESP", CountryISO3("12345678Z"))
	assert.Equal(t, "ESP", CountryISO3("XX999"))
}

func TestParseDate(t *testing.T) {
	t.Run("iso date", func(t *testing.T) {
		iso, ok := ParseDate("2025-03-10")
		assert.True(t, ok)
		assert.Equal(t, "2025-03-10", iso)
	})

	t.Run("iso datetime keeps date part", func(t *testing.T) {
		iso, ok := ParseDate("2025-03-10 00:00:00")
		assert.True(t, ok)
		assert.Equal(t, "2025-03-10", iso)
	})

	t.Run("spanish format", func(t *testing.T) {
		iso, ok := ParseDate("10/03/2025")
		assert.True(t, ok)
		assert.Equal(t, "2025-03-10", iso)
	})

	t.Run("excel serial", func(t *testing.T) {
		// 45000 is 2023-03-15 in the 1900 date system
		iso, ok := ParseDate("45000")
		assert.True(t, ok)
		assert.Equal(t, "2023-03-15", iso)
	})

	t.Run("year out of range", func(t *testing.T) {
		_, ok := ParseDate("2500-01-01")
		assert.False(t, ok)
	})

	t.Run("unparseable", func(t *testing.T) {
		_, ok := ParseDate("pendiente")
		assert.False(t, ok)
	})

	t.Run("blank markers", func(t *testing.T) {
		for _, v := range []string{"", "   ", "nan", "None", "#N/A"} {
			_, ok := ParseDate(v)
			assert.False(t, ok, "value %q", v)
		}
	})
}
