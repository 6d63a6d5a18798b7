package limits

import (
	"errors"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		n       int64
		max     int
		wantErr bool
	}{
		{"zero allowed", 0, 10, false},
		{"at max", 10, 10, false},
		{"over max", 11, 10, true},
		{"negative", -1, 10, true},
		{"unbounded", 1 << 40, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check("thing", tt.n, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check(%d, %d) err = %v, wantErr %v", tt.n, tt.max, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrLimitExceeded) {
				t.Errorf("expected ErrLimitExceeded, got %v", err)
			}
		})
	}
}

func TestCheckNonZero(t *testing.T) {
	if err := CheckNonZero("objects", 0, 5); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("expected ErrLimitExceeded for zero count, got %v", err)
	}
	if err := CheckNonZero("objects", 1, 5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMerge(t *testing.T) {
	d := Default()
	l := Limits{MaxObjects: 3, Strict: true}.Merge(d)

	if l.MaxObjects != 3 {
		t.Errorf("expected override 3, got %d", l.MaxObjects)
	}
	if l.MaxVertices != d.MaxVertices {
		t.Errorf("expected default vertices %d, got %d", d.MaxVertices, l.MaxVertices)
	}
	if !l.Strict {
		t.Error("expected strict to survive merge")
	}
}
