package core

import (
	"encoding/json"
	"testing"
)

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name string
		base Date
		n    int
		want string
	}{
		{"same day", NewDate(2024, 1, 15), 1, "2024-02-15"},
		{"clamp leap february", NewDate(2024, 1, 31), 1, "2024-02-29"},
		{"clamp february", NewDate(2023, 1, 31), 1, "2023-02-28"},
		{"two months from month end", NewDate(2024, 1, 31), 2, "2024-03-31"},
		{"year rollover", NewDate(2024, 11, 30), 3, "2025-02-28"},
		{"backwards", NewDate(2024, 3, 31), -1, "2024-02-29"},
		{"backwards across year", NewDate(2024, 1, 10), -13, "2022-12-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.base.AddMonths(tt.n).String(); got != tt.want {
				t.Errorf("AddMonths(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct{ y, m, want int }{
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, c := range cases {
		if got := DaysInMonth(c.y, c.m); got != c.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", c.y, c.m, got, c.want)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel(2024, 1); got != "Jan/24" {
		t.Errorf("MonthLabel(2024, 1) = %q, want Jan/24", got)
	}
	if got := MonthLabel(2005, 12); got != "Dec/05" {
		t.Errorf("MonthLabel(2005, 12) = %q, want Dec/05", got)
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-05"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-03-05" {
		t.Errorf("got %s", d)
	}
	if err := json.Unmarshal([]byte(`"2024-03-05T10:30:00Z"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-03-05" {
		t.Errorf("timestamp input got %s", d)
	}
	if err := json.Unmarshal([]byte(`"05/03/2024"`), &d); err == nil {
		t.Error("expected error for unsupported layout")
	}
	out, _ := json.Marshal(NewDate(2024, 1, 2))
	if string(out) != `"2024-01-02"` {
		t.Errorf("marshal = %s", out)
	}
}
