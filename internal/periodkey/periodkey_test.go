package periodkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatQuarter(t *testing.T) {
	assert.Equal(t, "2025-Q1", FormatQuarter(2025, 1))
	assert.Equal(t, "2025-Q4", FormatQuarter(2025, 4))
}

func TestFormatTaxYear(t *testing.T) {
	assert.Equal(t, "2024-25", FormatTaxYear(2024))
	assert.Equal(t, "1999-00", FormatTaxYear(1999))
}

func TestParseQuarter(t *testing.T) {
	year, quarter, err := ParseQuarter("2025-Q3")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 3, quarter)
}

func TestParseQuarter_Invalid(t *testing.T) {
	for _, key := range []string{"", "2025", "2025-Q5", "2025-Q0", "abcd-Q1", "2025-Qx"} {
		_, _, err := ParseQuarter(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestParseTaxYear(t *testing.T) {
	year, err := ParseTaxYear("2024-25")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)

	year, err = ParseTaxYear("1999-00")
	require.NoError(t, err)
	assert.Equal(t, 1999, year)
}

func TestParseTaxYear_Invalid(t *testing.T) {
	for _, key := range []string{"", "2024", "2024-26", "2024-5", "abcd-25"} {
		_, err := ParseTaxYear(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestQuarterRoundTrip(t *testing.T) {
	year, quarter, err := ParseQuarter(FormatQuarter(2030, 2))
	require.NoError(t, err)
	assert.Equal(t, 2030, year)
	assert.Equal(t, 2, quarter)
}
