package clock

import (
	"errors"
	"testing"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"10:00", 600, false},
		{"13:15", 795, false},
		{"23:59", 1439, false},
		{" 09:30 ", 570, false},
		{"24:00", 0, true},
		{"10:60", 0, true},
		{"-1:00", 0, true},
		{"10", 0, true},
		{"10:00:00", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTime(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTime(%q): expected error, got %d", tt.input, got)
			} else if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("ParseTime(%q): error %v is not ErrInvalidFormat", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTime(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTime(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{600, "10:00"},
		{795, "13:15"},
		{1439, "23:59"},
	}

	for _, tt := range tests {
		if got := FormatTime(tt.minutes); got != tt.want {
			t.Errorf("FormatTime(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatTimeRoundTrip(t *testing.T) {
	for minutes := 0; minutes < MinutesPerDay; minutes += 7 {
		parsed, err := ParseTime(FormatTime(minutes))
		if err != nil {
			t.Fatalf("round trip %d: %v", minutes, err)
		}
		if parsed != minutes {
			t.Fatalf("round trip %d: got %d", minutes, parsed)
		}
	}
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"touching boundary is not a conflict", Interval{0, 60}, Interval{60, 120}, false},
		{"strict overlap", Interval{0, 60}, Interval{30, 90}, true},
		{"contained", Interval{0, 120}, Interval{30, 60}, true},
		{"identical", Interval{600, 660}, Interval{600, 660}, true},
		{"disjoint", Interval{0, 60}, Interval{120, 180}, false},
		{"one minute overlap", Interval{0, 61}, Interval{60, 120}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("%v.Overlaps(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("%v.Overlaps(%v) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestIntervalString(t *testing.T) {
	got := Interval{Start: 600, End: 660}.String()
	if got != "10:00–11:00" {
		t.Errorf("String() = %q, want %q", got, "10:00–11:00")
	}
}

func TestFindConflict(t *testing.T) {
	existing := []Interval{
		{Start: 600, End: 660},
		{Start: 630, End: 690},
		{Start: 720, End: 780},
	}

	conflict, found := FindConflict(Interval{Start: 640, End: 700}, existing)
	if !found {
		t.Fatal("expected conflict")
	}
	// First match in slice order wins even when later entries also overlap.
	if conflict != existing[0] {
		t.Errorf("conflict = %v, want first entry %v", conflict, existing[0])
	}

	if _, found := FindConflict(Interval{Start: 660, End: 720}, existing[:1]); found {
		t.Error("back-to-back interval should not conflict")
	}

	if _, found := FindConflict(Interval{Start: 0, End: 60}, nil); found {
		t.Error("empty existing set should never conflict")
	}
}
