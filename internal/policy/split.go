// Package policy holds the fixed revenue-split and credit rules.
package policy

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategorySpecial Category = "special"
	CategoryRug     Category = "rug"
	CategoryRegular Category = "regular"
)

// specialKeywords are checked before rugKeyword.
var specialKeywords = []string{"engine", "radiator", "condenser"}

const rugKeyword = "rug"

var (
	three        = decimal.NewFromInt(3)
	two          = decimal.NewFromInt(2)
	companyShare = decimal.RequireFromString("0.6")
	washerShare  = decimal.RequireFromString("0.4")
)

// Split is the company/washer division of one line's price.
type Split struct {
	Company decimal.Decimal `json:"company"`
	Washer  decimal.Decimal `json:"washer"`
}

// Add returns the component-wise sum.
func (s Split) Add(o Split) Split {
	return Split{Company: s.Company.Add(o.Company), Washer: s.Washer.Add(o.Washer)}
}

// Classify maps a service item name to its split category using a
// case-insensitive substring match.
func Classify(serviceItemName string) Category {
	name := strings.ToLower(serviceItemName)
	for _, kw := range specialKeywords {
		if strings.Contains(name, kw) {
			return CategorySpecial
		}
	}
	if strings.Contains(name, rugKeyword) {
		return CategoryRug
	}
	return CategoryRegular
}

func IsSpecial(serviceItemName string) bool {
	return Classify(serviceItemName) == CategorySpecial
}

// SplitFor divides price between company and washer. Nothing is rounded here.
func SplitFor(serviceItemName string, price decimal.Decimal) Split {
	switch Classify(serviceItemName) {
	case CategorySpecial:
		washer := price.Div(three)
		return Split{Company: price.Sub(washer), Washer: washer}
	case CategoryRug:
		company := price.Div(two)
		return Split{Company: company, Washer: price.Sub(company)}
	default:
		return Split{Company: price.Mul(companyShare), Washer: price.Mul(washerShare)}
	}
}

// Round2 rounds to cents, half away from zero. Use only at presentation time.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
