package currency

import (
	"fmt"
	"math"
	"strings"
)

type style struct {
	prefix   string
	thousand string
	decimal  string
	digits   int
}

var styles = map[string]style{
	"USD": {prefix: "$", thousand: ",", decimal: ".", digits: 2},
	"GBP": {prefix: "£", thousand: ",", decimal: ".", digits: 2},
	"EUR": {prefix: "€", thousand: ",", decimal: ".", digits: 2},
	"JPY": {prefix: "¥", thousand: ",", decimal: ".", digits: 0},
	"IDR": {prefix: "IDR ", thousand: ".", decimal: ",", digits: 0},
}

// Format renders amount in the conventional style of the ISO currency code.
// Unknown codes fall back to "CODE 1,234.56".
func Format(amount float64, code string) string {
	code = strings.ToUpper(code)
	st, ok := styles[code]
	if !ok {
		st = style{prefix: code + " ", thousand: ",", decimal: ".", digits: 2}
	}

	scale := math.Pow10(st.digits)
	rounded := math.Round(amount*scale) / scale

	negative := rounded < 0
	if negative {
		rounded = -rounded
	}

	whole := math.Floor(rounded)
	intStr := fmt.Sprintf("%.0f", whole)
	result := st.prefix + addThousandsSeparator(intStr, st.thousand)
	if st.digits > 0 {
		frac := math.Round((rounded - whole) * scale)
		result += st.decimal + fmt.Sprintf("%0*.0f", st.digits, frac)
	}

	if negative {
		result = "-" + result
	}
	return result
}

// Cents converts an amount to integer minor units for exact comparison.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// IsWholeCents reports whether amount has no fraction of a cent, allowing
// for float representation error.
func IsWholeCents(amount float64) bool {
	scaled := amount * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
