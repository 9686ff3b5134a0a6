// Package strings parses the comma separated lists found in settings and
// query strings (Kafka brokers, export ids).
package strings

import (
	"slices"
	"strings"
)

// SplitCSV splits s on commas, trims each entry and drops blanks and repeats.
// First occurrence wins; nil when nothing is left.
//
//	SplitCSV("kafka-1:9092, kafka-2:9092,,kafka-1:9092") // [kafka-1:9092 kafka-2:9092]
func SplitCSV(s string) []string {
	var out []string
	for entry := range strings.SplitSeq(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" || slices.Contains(out, entry) {
			continue
		}
		out = append(out, entry)
	}
	return out
}
