package patient

import "testing"

func TestNormalizeCPF(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"529.982.247-25", "52998224725", true},
		{"52998224725", "52998224725", true},
		{"111.444.777-35", "11144477735", true},
		{"529.982.247-26", "", false},
		{"111.111.111-11", "", false},
		{"1234567890", "", false},
		{"529.982.247-2a", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeCPF(tt.in)
		if ok != tt.valid || got != tt.want {
			t.Errorf("NormalizeCPF(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}

func TestOptional(t *testing.T) {
	if optional("   ") != nil {
		t.Error("expected nil for blank string")
	}
	if v := optional(" 12B "); v == nil || *v != "12B" {
		t.Errorf("expected trimmed value, got %v", v)
	}
}
