package core

import (
	"testing"
	"time"
)

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		anchor    time.Time
		frequency Frequency
		want      time.Time
	}{
		{
			name:      "daily adds one day",
			anchor:    NewDate(2024, 1, 15),
			frequency: Daily,
			want:      NewDate(2024, 1, 16),
		},
		{
			name:      "daily across month boundary",
			anchor:    NewDate(2024, 1, 31),
			frequency: Daily,
			want:      NewDate(2024, 2, 1),
		},
		{
			name:      "weekly adds seven days",
			anchor:    NewDate(2024, 1, 15),
			frequency: Weekly,
			want:      NewDate(2024, 1, 22),
		},
		{
			name:      "monthly keeps day of month",
			anchor:    NewDate(2024, 1, 15),
			frequency: Monthly,
			want:      NewDate(2024, 2, 15),
		},
		{
			name:      "monthly clamps to leap february",
			anchor:    NewDate(2024, 1, 31),
			frequency: Monthly,
			want:      NewDate(2024, 2, 29),
		},
		{
			name:      "monthly clamps to non-leap february",
			anchor:    NewDate(2023, 1, 31),
			frequency: Monthly,
			want:      NewDate(2023, 2, 28),
		},
		{
			name:      "monthly clamps 31st to 30-day month",
			anchor:    NewDate(2024, 3, 31),
			frequency: Monthly,
			want:      NewDate(2024, 4, 30),
		},
		{
			name:      "monthly across year boundary",
			anchor:    NewDate(2023, 12, 15),
			frequency: Monthly,
			want:      NewDate(2024, 1, 15),
		},
		{
			name:      "quarterly adds three months",
			anchor:    NewDate(2024, 1, 15),
			frequency: Quarterly,
			want:      NewDate(2024, 4, 15),
		},
		{
			name:      "quarterly clamps end of month",
			anchor:    NewDate(2024, 11, 30),
			frequency: Quarterly,
			want:      NewDate(2025, 2, 28),
		},
		{
			name:      "yearly adds one year",
			anchor:    NewDate(2024, 6, 1),
			frequency: Yearly,
			want:      NewDate(2025, 6, 1),
		},
		{
			name:      "yearly clamps feb 29 in non-leap year",
			anchor:    NewDate(2024, 2, 29),
			frequency: Yearly,
			want:      NewDate(2025, 2, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.anchor, tt.frequency)
			if err != nil {
				t.Fatalf("NextOccurrence() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %s, want %s",
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNextOccurrenceUnknownFrequency(t *testing.T) {
	if _, err := NextOccurrence(NewDate(2024, 1, 1), Frequency("fortnightly")); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

// Repeated single steps must equal one multi-step jump for fixed-length
// frequencies.
func TestNextOccurrenceNoDrift(t *testing.T) {
	anchor := NewDate(2024, 1, 1)

	d := anchor
	for i := 0; i < 30; i++ {
		next, err := NextOccurrence(d, Daily)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		d = next
	}
	if want := anchor.AddDate(0, 0, 30); !d.Equal(want) {
		t.Errorf("30 daily steps = %s, want %s", d.Format("2006-01-02"), want.Format("2006-01-02"))
	}

	d = anchor
	for i := 0; i < 10; i++ {
		d, _ = NextOccurrence(d, Weekly)
	}
	if want := anchor.AddDate(0, 0, 70); !d.Equal(want) {
		t.Errorf("10 weekly steps = %s, want %s", d.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestNextOnOrAfter(t *testing.T) {
	tests := []struct {
		name      string
		anchor    time.Time
		frequency Frequency
		ref       time.Time
		want      time.Time
	}{
		{
			name:      "anchor already on ref",
			anchor:    NewDate(2024, 3, 1),
			frequency: Monthly,
			ref:       NewDate(2024, 3, 1),
			want:      NewDate(2024, 3, 1),
		},
		{
			name:      "anchor in the future stays put",
			anchor:    NewDate(2024, 6, 1),
			frequency: Weekly,
			ref:       NewDate(2024, 3, 1),
			want:      NewDate(2024, 6, 1),
		},
		{
			name:      "catches up after long inactivity",
			anchor:    NewDate(2024, 1, 15),
			frequency: Monthly,
			ref:       NewDate(2024, 5, 20),
			want:      NewDate(2024, 6, 15),
		},
		{
			name:      "weekly catch up lands on cycle",
			anchor:    NewDate(2024, 1, 1),
			frequency: Weekly,
			ref:       NewDate(2024, 1, 20),
			want:      NewDate(2024, 1, 22),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOnOrAfter(tt.anchor, tt.frequency, tt.ref)
			if err != nil {
				t.Fatalf("NextOnOrAfter() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOnOrAfter() = %s, want %s",
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}
