package questions

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// Variant tags the closed set of question shapes.
type Variant int

const (
	VariantGeneric Variant = iota
	VariantWithPassword
)

func (v Variant) String() string {
	switch v {
	case VariantWithPassword:
		return "with_password"
	default:
		return "generic"
	}
}

type projector func(ctx context.Context, remote Remote, path dbus.ObjectPath) (Question, error)

type variantRule struct {
	variant Variant
	matches func(interfaces map[string]struct{}) bool
	project projector
}

// variants is ordered most specific first; the last rule always matches.
// A new shape is one more rule here, existing projectors stay untouched.
var variants = []variantRule{
	{variant: VariantWithPassword, matches: advertises(PasswordInterface), project: projectWithPassword},
	{variant: VariantGeneric, matches: func(map[string]struct{}) bool { return true }, project: projectGeneric},
}

func advertises(iface string) func(map[string]struct{}) bool {
	return func(interfaces map[string]struct{}) bool {
		_, ok := interfaces[iface]
		return ok
	}
}

// Classify maps an advertised interface set to its variant.
func Classify(interfaces map[string]struct{}) Variant {
	return ruleFor(interfaces).variant
}

func ruleFor(interfaces map[string]struct{}) variantRule {
	for _, rule := range variants {
		if rule.matches(interfaces) {
			return rule
		}
	}
	return variants[len(variants)-1]
}
