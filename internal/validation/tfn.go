package validation

const tfnLength = 9

var tfnWeights = [tfnLength]int{1, 4, 3, 7, 5, 8, 6, 9, 10}

// NormalizeTFN keeps only the ASCII digits of raw.
func NormalizeTFN(raw string) string {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	return string(digits)
}

// ValidateTFN checks a Tax File Number with the ATO weighted modulus 11 rule.
// Empty input fails the length check; the wizard never issues a check for it
// (see ReadyForCheck) and shows the field as not yet evaluated instead.
func ValidateTFN(raw string) Result {
	tfn := NormalizeTFN(raw)
	if len(tfn) != tfnLength {
		return Failed(MsgTFNLength)
	}

	sum := 0
	for i := 0; i < tfnLength; i++ {
		sum += int(tfn[i]-'0') * tfnWeights[i]
	}
	if sum%11 != 0 {
		return Failed(MsgTFNInvalid)
	}
	return Passed(MsgTFNValid)
}
