package main

import "testing"

func TestSplitFilters(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"Writes", 1},
		{"Writes,Snapshot", 2},
		{" Writes , , Snapshot ", 2},
	}
	for _, tt := range tests {
		if got := splitFilters(tt.in); len(got) != tt.want {
			t.Errorf("splitFilters(%q) = %v, want %d filters", tt.in, got, tt.want)
		}
	}
}

func TestMatches(t *testing.T) {
	name := "WritesWith(twice=true,delete=false,Random)"
	if !matches(name, nil) {
		t.Error("empty filter list must match everything")
	}
	if !matches(name, []string{"Snapshot", "Writes"}) {
		t.Error("substring filter should match")
	}
	if matches(name, []string{"Bulkload"}) {
		t.Error("non-matching filter should not match")
	}
}
