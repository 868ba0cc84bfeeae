package policy

import "strings"

// DefaultCreditWasherName is the washer every special item is credited to
// when the branch configuration does not override it.
const DefaultCreditWasherName = "Idowu"

// CreditPolicy identifies the distinguished washer of a branch. Callers must go
// through IsCreditTarget/TargetName rather than compare names themselves.
type CreditPolicy struct {
	Name string
}

func NewCreditPolicy(name string) CreditPolicy {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCreditWasherName
	}
	return CreditPolicy{Name: name}
}

// TargetName is the washer name to look up in a branch.
func (p CreditPolicy) TargetName() string {
	if p.Name == "" {
		return DefaultCreditWasherName
	}
	return p.Name
}

// IsCreditTarget reports whether washerName is the distinguished washer.
func (p CreditPolicy) IsCreditTarget(washerName string) bool {
	return strings.EqualFold(strings.TrimSpace(washerName), p.TargetName())
}

// RequiresCreditTarget reports whether a line for this item must be credited
// to the distinguished washer instead of the submitted one.
func (p CreditPolicy) RequiresCreditTarget(serviceItemName string) bool {
	return IsSpecial(serviceItemName)
}
