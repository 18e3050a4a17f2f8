package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
}

// TestParseLength 覆盖各单位的解析与换算（统一到 mm）。
func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		ref  float64
		want float64
	}{
		{"1in", 0, 25.4},
		{"2.54cm", 0, 25.4},
		{"12pt", 0, 12 * PtToMm},
		{"96px", 0, 25.4},
		{"7", 0, 7},
		{" 10MM ", 0, 10},
		{"50%", 120, 60},
		{"-3mm", 0, -3},
	}
	for _, tc := range cases {
		l, ok := ParseLength(tc.in)
		if !ok {
			t.Fatalf("%q 应可解析", tc.in)
		}
		if got := l.Resolve(tc.ref); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%q 解析为 mm 期望 %g，实际 %g", tc.in, tc.want, got)
		}
	}
	for _, bad := range []string{"", "mm", "abc", "12em"} {
		if _, ok := ParseLength(bad); ok {
			t.Fatalf("%q 不应被解析", bad)
		}
	}
}

// TestLineHeightResolve 验证倍数与绝对值两种行高语义。
func TestLineHeightResolve(t *testing.T) {
	fontSize := 12 * PtToMm
	spec, ok := ParseLineHeight("1.2x")
	if !ok || spec.Kind != LineHeightFactor {
		t.Fatalf("1.2x 应解析为倍数: %+v", spec)
	}
	if got, want := spec.Resolve(fontSize), fontSize*1.2; math.Abs(got-want) > 1e-9 {
		t.Fatalf("1.2x 行高错误: got=%g want=%g", got, want)
	}

	spec, ok = ParseLineHeight("18pt")
	if !ok || spec.Kind != LineHeightAbsolute {
		t.Fatalf("18pt 应解析为绝对值: %+v", spec)
	}
	if got, want := spec.Resolve(fontSize), 18*PtToMm; math.Abs(got-want) > 1e-9 {
		t.Fatalf("18pt 行高错误: got=%g want=%g", got, want)
	}

	if got, want := (LineHeightSpec{}).Resolve(10), 10*defaultLineHeightFactor; math.Abs(got-want) > 1e-9 {
		t.Fatalf("零值应使用默认倍数: got=%g want=%g", got, want)
	}
	for _, bad := range []string{"0x", "-1x", "50%", "x"} {
		if _, ok := ParseLineHeight(bad); ok {
			t.Fatalf("%q 不应被解析为行高", bad)
		}
	}
}
