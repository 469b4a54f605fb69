package rundown

import "testing"

func TestWipeRejected(t *testing.T) {
	const threshold = 20

	tests := []struct {
		name           string
		oldCount       int
		newCount       int
		scalarsChanged bool
		force          bool
		want           bool
	}{
		{"populated to zero rejected", 25, 0, false, false, true},
		{"same write changes title, passes", 25, 0, true, false, false},
		{"forced wipe passes", 25, 0, false, true, false},
		{"below threshold passes", 20, 0, false, false, false},
		{"just above threshold rejected", 21, 0, false, false, true},
		{"not dropping to zero passes", 25, 1, false, false, false},
		{"empty rundown passes", 0, 0, false, false, false},
		{"growth passes", 5, 200, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wipeRejected(tt.oldCount, tt.newCount, tt.scalarsChanged, threshold, tt.force)
			if got != tt.want {
				t.Errorf("wipeRejected(%d, %d, %v, %d, %v) = %v, want %v",
					tt.oldCount, tt.newCount, tt.scalarsChanged, threshold, tt.force, got, tt.want)
			}
		})
	}
}
