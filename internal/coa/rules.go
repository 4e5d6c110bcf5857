package coa

// Nature identifies the side an account balance conventionally sits on.
type Nature string

const (
	NatureDebit  Nature = "DEBIT"
	NatureCredit Nature = "CREDIT"
	NatureBoth   Nature = "BOTH"
)

// AccountLevel derives the hierarchy level from the code length. Codes of one
// to four digits map directly to levels 1-4; longer codes add a level per two
// digits.
func AccountLevel(code string) int {
	n := len(code)
	if n <= 4 {
		return n
	}
	return (n + 1) / 2
}

// ParentAccountNumber returns the code with its final character removed, or
// the empty string for top-level codes.
func ParentAccountNumber(code string) string {
	if len(code) <= 1 {
		return ""
	}
	return code[:len(code)-1]
}

// AccountNature maps the leading digit to the account's natural balance side.
// Classes 1-2 and 5-8 are debit-normal, classes 3-4 and 9 credit-normal. The
// mapping follows the national standard chart numbering and is not
// configurable per tenant.
func AccountNature(code string) Nature {
	if code == "" {
		return NatureBoth
	}
	switch code[0] {
	case '1', '2', '5', '6', '7', '8':
		return NatureDebit
	case '3', '4', '9':
		return NatureCredit
	default:
		return NatureBoth
	}
}

// ValidAccountCode reports whether the code is a non-empty string of digits.
func ValidAccountCode(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
