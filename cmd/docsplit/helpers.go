package main

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
}

// parseSizeLimit reads a byte count with an optional binary KB/MB/GB suffix,
// e.g. "500MB" or "1000000000".
func parseSizeLimit(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("size limit is empty")
	}

	upper := strings.ToUpper(trimmed)
	multiplier := int64(1)
	digits := upper
	for _, candidate := range sizeSuffixes {
		if rest, ok := strings.CutSuffix(upper, candidate.suffix); ok {
			multiplier = candidate.multiplier
			digits = strings.TrimSpace(rest)
			break
		}
	}

	count, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size limit %q: expected a number with optional KB/MB/GB suffix", value)
	}
	if count <= 0 {
		return 0, fmt.Errorf("size limit must be positive, got %q", value)
	}
	return count * multiplier, nil
}

var numberPrinter = message.NewPrinter(language.English)

// formatBytes renders a byte count with thousands separators.
func formatBytes(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}
