package nfl

import "github.com/nealgriffin/gridiron/pkg/util"

// Loose conversions for cells already validated upstream; failures fall back
// to the zero value rather than propagating.

func asString(v any) string {
	s, _ := util.GetAsString(v)
	return s
}

func asInt(v any) int {
	i, _ := util.GetAsInteger(v)
	return i
}

func asFloat(v any) float64 {
	f, _ := util.GetAsFloat(v)
	return f
}
