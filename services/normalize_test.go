package services

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"persian digits with separator", "۸۹٬۰۰۰", 89000},
		{"persian digits plain", "۲۵۰۰۰", 25000},
		{"arabic-indic digits", "٨٩٬٠٠٠", 89000},
		{"ascii with comma", "12,500", 12500},
		{"mixed with currency word", "۲۵٬۰۰۰ تومان", 25000},
		{"persian decimal separator", "۱۲٫۵", 12.5},
		{"ascii decimal", "99.25", 99.25},
		{"zero is a real price", "۰", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.in)
			if got == nil {
				t.Fatalf("ParsePrice(%q) = nil, want %v", tt.in, tt.want)
			}
			if *got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, *got, tt.want)
			}
		})
	}
}

func TestParsePriceMissingValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"no digits", "ناموجود"},
		{"latin words", "free"},
		{"lone separator", "٬"},
		{"lone dot", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePrice(tt.in); got != nil {
				t.Errorf("ParsePrice(%q) = %v, want nil", tt.in, *got)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  ۲۵٬۰۰۰  تومان ", "۲۵٬۰۰۰ تومان"},
		{"\n\tونک\n", "ونک"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
