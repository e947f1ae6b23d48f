package campus

import "fmt"

// ControllerProfile selects a vendor-style point-naming convention
// applied to equipment labels, matching the named controller vendors in
// the original simulator's profile table. It is purely a presentation
// layer over the same registry points; semantics never change with
// profile.
type ControllerProfile string

const (
	ProfileGeneric   ControllerProfile = "Generic"
	ProfileAlerton   ControllerProfile = "Alerton"
	ProfileDelta     ControllerProfile = "Delta"
	ProfileDistech   ControllerProfile = "Distech"
	ProfileHoneywell ControllerProfile = "Honeywell"
	ProfileJCI       ControllerProfile = "JCI"
)

// labelConventions maps a profile to the label prefixes it uses for the
// three device classes that carry vendor-specific naming in the
// original fleet (AHU, VAV and chiller controllers); every other device
// class keeps the generic label regardless of profile.
var labelConventions = map[ControllerProfile]struct {
	ahu, vav, chiller string
}{
	ProfileGeneric:   {"AHU", "VAV", "CH"},
	ProfileAlerton:   {"AHU", "VLC", "CHLR"},
	ProfileDelta:     {"AHU", "ZN", "CH"},
	ProfileDistech:   {"AHU", "EC-VAV", "CHW"},
	ProfileHoneywell: {"AHU", "TU", "CH"},
	ProfileJCI:       {"AHU", "FEC", "CHIL"},
}

func (p ControllerProfile) ahuLabel(n int) string   { return labelFor(p, "ahu", n) }
func (p ControllerProfile) vavLabel(n int) string    { return labelFor(p, "vav", n) }
func (p ControllerProfile) chillerLabel(n int) string { return labelFor(p, "chiller", n) }

func labelFor(p ControllerProfile, class string, n int) string {
	conv, ok := labelConventions[p]
	if !ok {
		conv = labelConventions[ProfileGeneric]
	}
	var prefix string
	switch class {
	case "ahu":
		prefix = conv.ahu
	case "vav":
		prefix = conv.vav
	default:
		prefix = conv.chiller
	}
	return fmt.Sprintf("%s_%d", prefix, n)
}
