// Package utils holds small parsing and timing helpers shared across modules.
package utils

import "strings"

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// NormalizeTickers upper-cases and de-duplicates instrument symbols, keeping first-seen order.
// Each input may itself be a comma-separated list, so both "AAPL,MSFT" and
// []string{"AAPL", "MSFT"} yield the same result.
func NormalizeTickers(inputs ...string) []string {
	seen := make(map[string]bool)
	var tickers []string
	for _, in := range inputs {
		for _, v := range ParseCSV(in) {
			symbol := strings.ToUpper(v)
			if seen[symbol] {
				continue
			}
			seen[symbol] = true
			tickers = append(tickers, symbol)
		}
	}
	return tickers
}
