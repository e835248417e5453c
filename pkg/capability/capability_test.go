package capability

import "testing"

func TestCapability_Matches(t *testing.T) {
	tests := []struct {
		name     string
		cap      Capability
		resource string
		ability  string
		want     bool
	}{
		{"exact match", Capability{"docs/report", "read"}, "docs/report", "read", true},
		{"ability mismatch", Capability{"docs/report", "read"}, "docs/report", "write", false},
		{"resource mismatch", Capability{"docs/report", "read"}, "docs/other", "read", false},
		{"full wildcard grants anything", Capability{"*", "*"}, "anything", "at-all", true},
		{"wildcard resource", Capability{"*", "read"}, "docs/report", "read", true},
		{"wildcard resource wrong ability", Capability{"*", "read"}, "docs/report", "write", false},
		{"wildcard ability", Capability{"docs/report", "*"}, "docs/report", "delete", true},
		{"wildcard query resource", Capability{"docs/report", "read"}, "*", "read", true},
		{"wildcard query ability", Capability{"docs/report", "read"}, "docs/report", "*", true},
		{"no prefix matching", Capability{"docs", "read"}, "docs/report", "read", false},
		{"X Y does not match X Z", Capability{"X", "Y"}, "X", "Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cap.Matches(tt.resource, tt.ability); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.resource, tt.ability, got, tt.want)
			}
		})
	}
}
