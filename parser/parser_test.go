package parser

import (
	"testing"

	"github.com/aluiziolira/go-book-gems/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "plain pound", input: "£51.77", want: 51.77},
		{name: "double encoded", input: "Â£13.99", want: 13.99},
		{name: "surrounding whitespace", input: "  £9.00  ", want: 9.00},
		{name: "bare number", input: "20.50", want: 20.50},
		{name: "empty", input: "", wantErr: true},
		{name: "symbol only", input: "£", wantErr: true},
		{name: "garbage", input: "free", wantErr: true},
		{name: "negative", input: "£-3.00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePrice(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePrice(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRatingToNumeric(t *testing.T) {
	tests := []struct {
		rating string
		want   int
	}{
		{rating: "One", want: 1},
		{rating: "Two", want: 2},
		{rating: "Three", want: 3},
		{rating: "Four", want: 4},
		{rating: "Five", want: 5},
		{rating: "Zero", want: 0},
		{rating: " Five ", want: 5},
		{rating: "Six", want: 0},
		{rating: "", want: 0},
	}

	for _, tt := range tests {
		if got := RatingToNumeric(tt.rating); got != tt.want {
			t.Fatalf("RatingToNumeric(%q) = %d, want %d", tt.rating, got, tt.want)
		}
	}
}

func TestValidateEntry(t *testing.T) {
	valid := models.CatalogEntry{Title: "A Light in the Attic", Price: 51.77, RatingText: "Three"}
	if err := ValidateEntry(&valid); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.CatalogEntry)
	}{
		{name: "empty title", mutate: func(e *models.CatalogEntry) { e.Title = "  " }},
		{name: "negative price", mutate: func(e *models.CatalogEntry) { e.Price = -1 }},
		{name: "missing rating", mutate: func(e *models.CatalogEntry) { e.RatingText = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid
			tt.mutate(&entry)
			if err := ValidateEntry(&entry); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if err := ValidateEntry(nil); err == nil {
		t.Fatalf("nil entry must be rejected")
	}
}
