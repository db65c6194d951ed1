package entity

import (
	"math"
	"testing"
)

func TestAsInt64(t *testing.T) {
	t.Parallel()

	big := int64(1) << 40

	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{name: "int", in: 42, want: 42},
		{name: "int64", in: int64(-7), want: -7},
		{name: "pointer", in: &big, want: big},
		{name: "whole float", in: float64(26), want: 26},
		{name: "negative whole float", in: float64(-3), want: -3},
		{name: "numeric string", in: "17", want: 17},
		{name: "fractional float", in: 2.5, wantErr: true},
		{name: "float above int64 range", in: 1e20, wantErr: true},
		{name: "float below int64 range", in: -1e20, wantErr: true},
		{name: "float at two to the 63", in: float64(math.MaxInt64), wantErr: true},
		{name: "float at min int64", in: float64(math.MinInt64), want: math.MinInt64},
		{name: "infinity", in: math.Inf(1), wantErr: true},
		{name: "nan", in: math.NaN(), wantErr: true},
		{name: "nil pointer", in: (*int64)(nil), wantErr: true},
		{name: "non numeric string", in: "seven", wantErr: true},
		{name: "bool", in: true, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := AsInt64(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("AsInt64(%v) = %d, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("AsInt64(%v) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("AsInt64(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntField_RejectsOutOfRangeFloat(t *testing.T) {
	t.Parallel()

	type row struct{ n int }
	f := IntField("n", func(r *row) *int { return &r.n })

	r := &row{n: 5}
	if err := f.Assign(r, 1e20); err == nil {
		t.Fatal("Assign(1e20) succeeded, want error")
	}
	if r.n != 5 {
		t.Errorf("n = %d after failed assign, want 5", r.n)
	}
}
