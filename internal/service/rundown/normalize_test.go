package rundown

import "testing"

func TestNormalize(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("Normalize(nil) = %v, want nil", got)
	}
	if got := Normalize(""); got != nil {
		t.Errorf("Normalize(\"\") = %v, want nil", got)
	}
	if got := Normalize("talent"); got != "talent" {
		t.Errorf("Normalize(\"talent\") = %v, want \"talent\"", got)
	}
	if got := Normalize(float64(0)); got != float64(0) {
		t.Errorf("Normalize(0) = %v, want 0", got)
	}
	if got := Normalize(false); got != false {
		t.Errorf("Normalize(false) = %v, want false", got)
	}
}

func TestNormalizedEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs empty string", nil, "", true},
		{"empty string vs nil", "", nil, true},
		{"empty vs empty", "", "", true},
		{"same string", "Opening", "Opening", true},
		{"different strings", "Opening", "Closing", false},
		{"nil vs value", nil, "x", false},
		{"value vs empty", "x", "", false},
		{"equal numbers", float64(30), float64(30), true},
		{"different numbers", float64(30), float64(45), false},
		{"zero is not empty", float64(0), nil, false},
		{"false is not empty", false, nil, false},
		{
			"equal maps",
			map[string]interface{}{"a": float64(1)},
			map[string]interface{}{"a": float64(1)},
			true,
		},
		{
			"different maps",
			map[string]interface{}{"a": float64(1)},
			map[string]interface{}{"a": float64(2)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizedEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("NormalizedEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
