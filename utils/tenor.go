package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTenorMonths converts tenor strings like "3M", "10Y" or "1Y6M" to a month count.
func ParseTenorMonths(tenor string) (int, error) {
	s := strings.TrimSpace(strings.ToUpper(tenor))
	if s == "" {
		return 0, fmt.Errorf("ParseTenorMonths: empty tenor")
	}
	total := 0
	num := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'Y' || r == 'M':
			if num == "" {
				return 0, fmt.Errorf("ParseTenorMonths: malformed tenor %q", tenor)
			}
			v, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("ParseTenorMonths: %q: %w", tenor, err)
			}
			if r == 'Y' {
				v *= 12
			}
			total += v
			num = ""
		default:
			return 0, fmt.Errorf("ParseTenorMonths: unsupported unit in %q", tenor)
		}
	}
	if num != "" {
		return 0, fmt.Errorf("ParseTenorMonths: missing unit in %q", tenor)
	}
	return total, nil
}
