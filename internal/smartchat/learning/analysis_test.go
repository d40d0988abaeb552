package learning

import (
	"reflect"
	"testing"

	"github.com/chevai/smartchat/internal/smartchat/ai"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		message  string
		language ai.Language
		mood     Mood
		register Register
	}{
		{"áo này đẹp quá shop ơi", ai.LangVietnamese, MoodPositive, RegisterCasual},
		{"dạ quý khách cần tư vấn gì ạ", ai.LangVietnamese, MoodNeutral, RegisterFormal},
		{"đắt quá không thích", ai.LangVietnamese, MoodNegative, RegisterCasual},
		{"this looks great", ai.LangEnglish, MoodPositive, RegisterCasual},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := Analyze(tt.message)
			if got.Language != tt.language {
				t.Errorf("language = %q, want %q", got.Language, tt.language)
			}
			if got.Mood != tt.mood {
				t.Errorf("mood = %q, want %q", got.Mood, tt.mood)
			}
			if got.Register != tt.register {
				t.Errorf("register = %q, want %q", got.Register, tt.register)
			}
		})
	}
}

func TestTopicWordsDropsStopWords(t *testing.T) {
	got := topicWords("shop có hoodie xám không bạn")
	want := []string{"hoodie", "xám"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}
}

func TestSharedTopicRatio(t *testing.T) {
	a := []string{"hoodie", "xám", "size"}
	b := []string{"hoodie", "size", "đen"}

	got := sharedTopicRatio(a, b)
	if got < 0.66 || got > 0.67 {
		t.Fatalf("ratio = %v, want 2/3", got)
	}
	if sharedTopicRatio(a, nil) != 0 {
		t.Fatal("empty topics should give zero ratio")
	}
}

func TestAdaptRegister(t *testing.T) {
	reply := "bạn thử mẫu này nha, mình thấy hợp lắm"

	formal := adaptRegister(reply, RegisterFormal)
	want := "quý khách thử mẫu này nha, chúng tôi thấy hợp lắm"
	if formal != want {
		t.Fatalf("formal = %q, want %q", formal, want)
	}

	if adaptRegister(reply, RegisterCasual) != reply {
		t.Fatal("casual register should leave the reply untouched")
	}
}
