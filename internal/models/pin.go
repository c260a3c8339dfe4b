package models

// PartnerPin is the 11-digit key that joins statement and settlement
// records. Pins are derived from free text, never entered directly.
type PartnerPin string

// PinLength is the exact number of digits a valid PartnerPin carries.
const PinLength = 11

// ExtractPin pulls a PartnerPin from the end of a free-text field.
// Trailing whitespace and other non-digit characters are skipped, then
// the maximal trailing run of digits is taken. Extraction succeeds only
// when that run is exactly 11 digits long; shorter or longer runs yield
// no pin. No truncation or padding is applied.
func ExtractPin(text string) (PartnerPin, bool) {
	end := len(text)
	for end > 0 && !isDigit(text[end-1]) {
		end--
	}

	start := end
	for start > 0 && isDigit(text[start-1]) {
		start--
	}

	if end-start != PinLength {
		return "", false
	}
	return PartnerPin(text[start:end]), true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Valid reports whether the pin is a well-formed 11-digit key
func (p PartnerPin) Valid() bool {
	if len(p) != PinLength {
		return false
	}
	for i := 0; i < len(p); i++ {
		if !isDigit(p[i]) {
			return false
		}
	}
	return true
}

// String returns the string representation of the pin
func (p PartnerPin) String() string {
	return string(p)
}
