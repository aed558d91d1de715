package value

import "testing"

func TestIsNA(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"NA", true},
		{"na", true},
		{"N/A", true},
		{"n/a", true},
		{"None", true},
		{"NULL", true},
		{"NaN", true},
		{" NA ", true},
		{"0", false},
		{"0.0", false},
		{"Sand", false},
		{"NAB", false},
	}
	for _, tt := range tests {
		if got := IsNA(tt.raw); got != tt.want {
			t.Errorf("IsNA(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{" 12.5 ", 12.5, true},
		{"-3", -3, true},
		{"", 0, false},
		{"NA", 0, false},
		{"rock", 0, false},
		{"1e2", 100, true},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCompareNumeric(t *testing.T) {
	tests := []struct {
		current, expected string
		op                Op
		want              bool
	}{
		{"5", "5", OpEquals, true},
		{"5.0", "5", OpEquals, true},
		{"5", "6", OpNotEquals, true},
		{"7", "5", OpGreaterThan, true},
		{"5", "5", OpGreaterThan, false},
		{"5", "5", OpGreaterEqual, true},
		{"4", "5", OpLessThan, true},
		{"5", "5", OpLessEqual, true},
	}
	for _, tt := range tests {
		if got := Compare(tt.current, tt.expected, tt.op); got != tt.want {
			t.Errorf("Compare(%q, %q, %s) = %v, want %v", tt.current, tt.expected, tt.op, got, tt.want)
		}
	}
}

func TestCompareStringFallback(t *testing.T) {
	if !Compare("Sand", "Sand", OpEquals) {
		t.Error("expected string equality to hold")
	}
	if !Compare("Sand", "Rock", OpNotEquals) {
		t.Error("expected string inequality to hold")
	}
	// Ordering operators on non-numeric text are undefined and must be false.
	for _, op := range []Op{OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual} {
		if Compare("Sand", "Rock", op) {
			t.Errorf("Compare(Sand, Rock, %s) = true, want false", op)
		}
	}
}

func TestParseOpSynonyms(t *testing.T) {
	tests := []struct {
		raw  string
		want Op
		ok   bool
	}{
		{"equals", OpEquals, true},
		{"equal", OpEquals, true},
		{"greater", OpGreaterThan, true},
		{"greater_than", OpGreaterThan, true},
		{"greater_equal", OpGreaterEqual, true},
		{">=", OpGreaterEqual, true},
		{"NOT_EQUALS", OpNotEquals, true},
		{"between", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOp(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseOp(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    float64
		want string
	}{
		{20, "20"},
		{5.77350269, "5.7735"},
		{0, "0"},
		{-1.5, "-1.5"},
		{100.25, "100.25"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.n); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
