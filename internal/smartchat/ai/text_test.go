package ai

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		message string
		want    Language
	}{
		{"chào shop", LangVietnamese},
		{"áo này giá bao nhiêu", LangVietnamese},
		{"do you have hoodies", LangEnglish},
		{"ok", LangEnglish},
	}
	for _, tt := range tests {
		if got := DetectLanguage(tt.message); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price int64
		want  string
	}{
		{250000, "250k"},
		{350000, "350k"},
		{999000, "999k"},
		{1_000_000, "1tr"},
		{1_500_000, "2tr"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.price); got != tt.want {
			t.Errorf("FormatPrice(%d) = %q, want %q", tt.price, got, tt.want)
		}
	}
}

func TestClassifyFamily(t *testing.T) {
	tests := []struct {
		message string
		want    Family
	}{
		{"áo thun đẹp không", FamilyShirt},
		{"quần jogger còn size L", FamilyPants},
		{"áo với quần combo", FamilyNone},
		{"shop ship về đâu", FamilyNone},
	}
	for _, tt := range tests {
		if got := ClassifyFamily(tt.message); got != tt.want {
			t.Errorf("ClassifyFamily(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestSizeForWeight(t *testing.T) {
	tests := []struct {
		kg   int
		want string
	}{
		{50, "S"},
		{55, "M"},
		{64, "M"},
		{65, "L"},
		{74, "L"},
		{75, "XL"},
		{90, "XL"},
	}
	for _, tt := range tests {
		if got := sizeForWeight(tt.kg); got != tt.want {
			t.Errorf("sizeForWeight(%d) = %q, want %q", tt.kg, got, tt.want)
		}
	}
}

func TestStripSelectionFiller(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hoodie xám đi", "hoodie xám"},
		{"lấy mẫu này nha", "lấy mẫu này"},
		{"áo thun", "áo thun"},
	}
	for _, tt := range tests {
		if got := stripSelectionFiller(tt.in); got != tt.want {
			t.Errorf("stripSelectionFiller(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
