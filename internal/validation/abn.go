package validation

import (
	"strings"
	"unicode"
)

const abnLength = 11

var abnWeights = [abnLength]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

// NormalizeABN removes whitespace only. Punctuation is kept so that it fails
// the numeric check instead of being silently accepted.
func NormalizeABN(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// ValidateABN checks an Australian Business Number with the ABR modulus 89 rule.
func ValidateABN(raw string) Result {
	abn := []rune(NormalizeABN(raw))
	if len(abn) != abnLength {
		return Failed(MsgABNLength)
	}
	for _, r := range abn {
		if r < '0' || r > '9' {
			return Failed(MsgABNNotNumeric)
		}
	}

	sum := 0
	for i, r := range abn {
		d := int(r - '0')
		if i == 0 {
			// A leading 0 becomes -1 and stays negative in the sum.
			d--
		}
		sum += d * abnWeights[i]
	}
	if sum%89 != 0 {
		return Failed(MsgABNInvalid)
	}
	return Passed(MsgABNValid)
}
