package ai

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/chevai/smartchat/internal/smartchat/catalog"
)

// Language is the reply language selected per message.
type Language string

const (
	LangVietnamese Language = "vi"
	LangEnglish    Language = "en"
)

var vietnameseDiacritics = regexp.MustCompile(`[àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ]`)

// DetectLanguage classifies a message as Vietnamese when it carries any
// Vietnamese diacritic character, English otherwise.
func DetectLanguage(message string) Language {
	if vietnameseDiacritics.MatchString(strings.ToLower(message)) {
		return LangVietnamese
	}
	return LangEnglish
}

// FormatPrice renders a minor-unit VND price in shop shorthand:
// 350000 -> "350k", 1200000 -> "1tr".
func FormatPrice(price int64) string {
	if price >= 1_000_000 {
		return strconv.Itoa(int(math.Round(float64(price)/1_000_000))) + "tr"
	}
	return strconv.Itoa(int(math.Round(float64(price)/1_000))) + "k"
}

// Patterns shared between the context store, the responders, and the router.
// All matching is done on a lowercased message.
var (
	// affirmationPattern matches a bare short agreement ("có", "ok", ...).
	affirmationPattern = regexp.MustCompile(`^(có|ok|yes|được|đồng\s*ý|ừ|ừm|vâng)$`)

	// showImagePattern matches explicit "show me the image" phrasings.
	showImagePattern = regexp.MustCompile(`(có.*xem|xem.*ảnh|show.*image|muốn.*xem|cho.*xem|ảnh.*sản\s*phẩm|ảnh.*đó)`)

	// productTypeMention matches any concrete product-type keyword.
	productTypeMention = regexp.MustCompile(`(hoodie|sweater|jogger|t-shirt|áo\s*thun|quần|ringer|relaxed)`)

	// sizeInquiryPattern matches size/weight/fit phrasing. It vetoes image
	// confirmations even when an affirmation word is present.
	sizeInquiryPattern = regexp.MustCompile(`(\d+\s*kg|cân\s*nặng|size|kích\s*thước|vừa.*không|fit.*không|mặc.*có)`)

	// previousRefPattern matches "this/that product" pronoun references.
	previousRefPattern = regexp.MustCompile(`(áo này|sản phẩm này|cái này|này.*có|có.*này|item này|product này)`)

	// selectionSuffix matches trailing filler that marks a product selection
	// ("... đi", "... nha", "ok").
	selectionSuffix = regexp.MustCompile(`(đi|nha|vậy|ok|được|chọn|lấy)\s*$`)

	// numberedRefPattern captures an explicit "product #N" reference.
	numberedRefPattern = regexp.MustCompile(`(?:sản\s*phẩm|item|product)\s*(?:số\s*)?(\d+)`)

	shirtVocabulary = regexp.MustCompile(`(áo|hoodie|sweater|t-shirt|tshirt|thun|ringer|relaxed)`)
	pantsVocabulary = regexp.MustCompile(`(quần|jogger)`)
)

// IsAffirmation reports whether the trimmed message is a bare agreement.
func IsAffirmation(message string) bool {
	return affirmationPattern.MatchString(strings.ToLower(strings.TrimSpace(message)))
}

// MentionsProductType reports whether the message names a concrete product
// type.
func MentionsProductType(message string) bool {
	return productTypeMention.MatchString(strings.ToLower(message))
}

// Family partitions the catalog vocabulary into tops and bottoms.
type Family int

const (
	FamilyNone Family = iota
	FamilyShirt
	FamilyPants
)

var (
	shirtFamilyTypes = []catalog.Type{catalog.TypeTShirt, catalog.TypeHoodie, catalog.TypeSweater, catalog.TypeRelaxedFit, catalog.TypeRinger}
	pantsFamilyTypes = []catalog.Type{catalog.TypeJogger}
)

// ClassifyFamily resolves shirt-versus-pants vocabulary ambiguity: a message
// carrying shirt words and no pants words is shirt-family (and vice versa);
// both or neither yields FamilyNone.
func ClassifyFamily(message string) Family {
	lower := strings.ToLower(message)
	shirt := shirtVocabulary.MatchString(lower)
	pants := pantsVocabulary.MatchString(lower)
	switch {
	case shirt && !pants:
		return FamilyShirt
	case pants && !shirt:
		return FamilyPants
	default:
		return FamilyNone
	}
}

// Types returns the catalog types belonging to the family, or nil for
// FamilyNone.
func (f Family) Types() []catalog.Type {
	switch f {
	case FamilyShirt:
		return append([]catalog.Type(nil), shirtFamilyTypes...)
	case FamilyPants:
		return append([]catalog.Type(nil), pantsFamilyTypes...)
	default:
		return nil
	}
}

// Contains reports whether t belongs to the family. FamilyNone contains
// everything.
func (f Family) Contains(t catalog.Type) bool {
	types := f.Types()
	if types == nil {
		return true
	}
	for _, c := range types {
		if c == t {
			return true
		}
	}
	return false
}

// sizeForWeight applies the shop's weight-to-size table.
func sizeForWeight(kg int) string {
	switch {
	case kg < 55:
		return "S"
	case kg < 65:
		return "M"
	case kg < 75:
		return "L"
	default:
		return "XL"
	}
}

// significantWords returns the lowercased words of s longer than two runes.
func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len([]rune(w)) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// stripSelectionFiller removes a trailing selection filler word so that
// name-pattern searches only see content words.
func stripSelectionFiller(message string) string {
	return strings.TrimSpace(selectionSuffix.ReplaceAllString(strings.TrimSpace(message), ""))
}

// selectionNoise matches words that mark a selection or address someone but
// never appear in a product name.
var selectionNoise = regexp.MustCompile(`^(mình|tôi|em|anh|chị|bạn|shop|cho|xem|muốn|thích|chọn|lấy|mua|cái|mẫu|này|kia|đó|nha|nhé|vậy|ok|được|đi|không|ạ|dạ)$`)

// isSelectionPhrase reports whether a lowercased message reads like the
// customer picking a product ("mình lấy hoodie đi").
func isSelectionPhrase(lower string) bool {
	if stripSelectionFiller(lower) != strings.TrimSpace(lower) {
		return true
	}
	return strings.Contains(lower, "chọn") || strings.Contains(lower, "lấy")
}

// selectionKeywords extracts the content words of a selection phrase, the
// ones a product name could actually contain.
func selectionKeywords(lower string) []string {
	var out []string
	for _, w := range significantWords(stripSelectionFiller(lower)) {
		if selectionNoise.MatchString(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}
