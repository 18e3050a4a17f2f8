package layout

import (
	"strconv"
	"strings"
)

// Lengths in a document keep the unit they were written in; the composer
// works in millimetres.

// Unit is the unit a length was written in.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers (factors, or mm for lengths)
	UnitMM                  // millimetres
	UnitCM                  // centimetres
	UnitIN                  // inches
	UnitPT                  // points
	UnitPX                  // CSS pixels at 96 dpi
	UnitPercent             // relative to a reference length
)

const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PxToMm = 25.4 / 96
)

var unitSuffixes = []struct {
	suffix string
	unit   Unit
}{
	{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}, {"%", UnitPercent},
}

func (u Unit) String() string {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.suffix
		}
	}
	return ""
}

// Length is a number together with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// Resolve converts to millimetres. Percentages are taken of reference (mm).
func (l Length) Resolve(reference float64) float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	case UnitPX:
		return l.Value * PxToMm
	case UnitPercent:
		return reference * l.Value / 100
	default:
		return l.Value
	}
}

func (l Length) ToMM() float64 { return l.Resolve(0) }
func (l Length) ToPT() float64 { return l.Resolve(0) * MmToPt }

// ParseLength parses strings such as "12pt", "3.5mm", "50%" or "7".
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	for _, s := range unitSuffixes {
		if strings.HasSuffix(v, s.suffix) {
			unit = s.unit
			v = strings.TrimSpace(strings.TrimSuffix(v, s.suffix))
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// parseMM parses value and resolves it to millimetres; invalid input yields 0.
func parseMM(value string, reference float64) float64 {
	l, ok := ParseLength(value)
	if !ok {
		return 0
	}
	return l.Resolve(reference)
}

// LineHeightKind distinguishes factor-based vs absolute line heights.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// defaultLineHeightFactor applies when a text sets no line-height.
const defaultLineHeightFactor = 1.4

// LineHeightSpec is either a factor of the font size ("1.2x") or an absolute
// length ("18pt").
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight reads "1.2x" as a factor and anything else as a length.
func ParseLineHeight(value string) (LineHeightSpec, bool) {
	v := strings.TrimSpace(value)
	if strings.HasSuffix(v, "x") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
		if err != nil || f <= 0 {
			return LineHeightSpec{}, false
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f}, true
	}
	l, ok := ParseLength(v)
	if !ok || l.Value <= 0 || l.Unit == UnitPercent {
		return LineHeightSpec{}, false
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, true
}

// Resolve returns the line height in mm for a font size given in mm.
func (s LineHeightSpec) Resolve(fontSizeMM float64) float64 {
	if s.Kind == LineHeightAbsolute {
		return s.Len.ToMM()
	}
	f := s.Factor
	if f <= 0 {
		f = defaultLineHeightFactor
	}
	return fontSizeMM * f
}
