package periodkey

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatQuarter returns a VAT period key like "2025-Q1".
func FormatQuarter(year, quarter int) string {
	return fmt.Sprintf("%04d-Q%d", year, quarter)
}

// FormatTaxYear returns an income tax period key like "2024-25" for the
// UK tax year starting 6 April of startYear.
func FormatTaxYear(startYear int) string {
	return fmt.Sprintf("%04d-%02d", startYear, (startYear+1)%100)
}

// ParseQuarter parses "2025-Q1" into year and quarter.
func ParseQuarter(key string) (year, quarter int, err error) {
	parts := strings.SplitN(key, "-Q", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid quarter key format: %q", key)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in quarter key %q: %w", key, err)
	}

	quarter, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid quarter in key %q: %w", key, err)
	}
	if quarter < 1 || quarter > 4 {
		return 0, 0, fmt.Errorf("quarter out of range in key %q", key)
	}

	return year, quarter, nil
}

// ParseTaxYear parses "2024-25" into the starting year.
func ParseTaxYear(key string) (int, error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid tax year key format: %q", key)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid year in tax year key %q: %w", key, err)
	}

	next, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid end year in tax year key %q: %w", key, err)
	}
	if (year+1)%100 != next {
		return 0, fmt.Errorf("tax year key %q is not consecutive", key)
	}

	return year, nil
}
