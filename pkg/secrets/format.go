package secrets

import "strings"

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatTFN renders 123456782 as "123 456 782". Other lengths are returned as digits.
func FormatTFN(tfn string) string {
	d := digitsOnly(tfn)
	if len(d) != 9 {
		return d
	}
	return d[:3] + " " + d[3:6] + " " + d[6:]
}

// FormatABN renders 51824753556 as "51 824 753 556".
func FormatABN(abn string) string {
	d := digitsOnly(abn)
	if len(d) != 11 {
		return d
	}
	return d[:2] + " " + d[2:5] + " " + d[5:8] + " " + d[8:]
}

// FormatBSB renders 062000 as "062-000".
func FormatBSB(bsb string) string {
	d := digitsOnly(bsb)
	if len(d) != 6 {
		return d
	}
	return d[:3] + "-" + d[3:]
}

// MaskTFN keeps only the last three digits: "••• ••• 782".
func MaskTFN(tfn string) string {
	d := digitsOnly(tfn)
	if len(d) < 3 {
		return ""
	}
	return "••• ••• " + d[len(d)-3:]
}
