package ai

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chevai/smartchat/internal/smartchat/catalog"
)

// Intent tags extracted from a message. Tags are not mutually exclusive; a
// message may carry several at once.
type Intent string

const (
	IntentGreeting      Intent = "greeting"
	IntentProductSearch Intent = "product_search"
	IntentPriceInquiry  Intent = "price_inquiry"
	IntentImageRequest  Intent = "image_request"
	IntentSizeInquiry   Intent = "size_inquiry"
	IntentStyleAdvice   Intent = "style_advice"
	IntentConfirmation  Intent = "confirmation"
	IntentGoodbye       Intent = "goodbye"
)

// Occasion and style values extracted into Situation.
const (
	OccasionCasual = "casual"
	OccasionWork   = "work"
	OccasionSchool = "school"

	StyleCute   = "cute"
	StyleCool   = "cool"
	StyleTrendy = "trendy"
)

// Situation is optional situational context: each field is independently
// absent (zero) when the message does not mention it.
type Situation struct {
	WeightKg int
	Occasion string
	Style    string
}

// IntentAnalysis is the transient result of classifying one message.
type IntentAnalysis struct {
	Intents      []Intent
	ProductTypes []catalog.Type
	Situation    Situation
	// Confidence is 0.8 when at least one intent tag fired, 0.3 otherwise.
	// Consumed only by routing logs, never by correctness-critical branches.
	Confidence float64
}

// Has reports whether the analysis carries the given intent tag.
func (a IntentAnalysis) Has(intent Intent) bool {
	for _, i := range a.Intents {
		if i == intent {
			return true
		}
	}
	return false
}

// Each intent is detected by its own independent regex family.
var intentFamilies = []struct {
	intent   Intent
	patterns []*regexp.Regexp
}{
	{IntentGreeting, []*regexp.Regexp{regexp.MustCompile(`^(xin\s*chào|chào|hello|hi|hey)`)}},
	{IntentProductSearch, []*regexp.Regexp{
		regexp.MustCompile(`(áo|quần|hoodie|sweater|jogger|t-shirt)`),
		regexp.MustCompile(`(có.*gì|show.*product)`),
	}},
	{IntentPriceInquiry, []*regexp.Regexp{regexp.MustCompile(`(giá|price|bao\s*nhiêu)`)}},
	{IntentImageRequest, []*regexp.Regexp{regexp.MustCompile(`(ảnh|hình|image|xem)`)}},
	{IntentSizeInquiry, []*regexp.Regexp{regexp.MustCompile(`(size|kích\s*thước|cỡ|\d+\s*kg|cân\s*nặng)`)}},
	{IntentStyleAdvice, []*regexp.Regexp{regexp.MustCompile(`(tư\s*vấn|phối\s*đồ|outfit|style|gợi\s*ý|recommend|advice)`)}},
	{IntentConfirmation, []*regexp.Regexp{regexp.MustCompile(`^(có|ok|yes|được|ừ|ừm|vâng|đồng\s*ý)$`)}},
	{IntentGoodbye, []*regexp.Regexp{regexp.MustCompile(`(tạm\s*biệt|bye|goodbye)`)}},
}

// Product-type keyword patterns. A bare keyword ("thun", "quần") only counts
// for its generic type when it is not qualified into a more specific one.
var typePatterns = []struct {
	ptype     catalog.Type
	match     *regexp.Regexp
	qualified *regexp.Regexp
}{
	{catalog.TypeHoodie, regexp.MustCompile(`(hoodie|hodie|hoody|áo\s*khoác|áo\s*có\s*mũ|khoác)`), nil},
	{catalog.TypeSweater, regexp.MustCompile(`(sweater|swetter|áo\s*len|áo\s*ấm|len)`), nil},
	{catalog.TypeTShirt, regexp.MustCompile(`(áo\s*thun|t-shirt|tshirt|t\s*shirt|áo\s*tee|thun)`), regexp.MustCompile(`^thun\s*(relaxed|ringer)`)},
	{catalog.TypeRelaxedFit, regexp.MustCompile(`(relaxed\s*fit|relaxed)`), nil},
	{catalog.TypeRinger, regexp.MustCompile(`(ringer|viền)`), nil},
	{catalog.TypeJogger, regexp.MustCompile(`(jogger|jooger|quần\s*thể\s*thao|quần\s*dài|quần\s*ống\s*suông|quần)`), regexp.MustCompile(`^quần\s*(short|sort)`)},
}

var (
	weightPattern = regexp.MustCompile(`(\d+)\s*kg`)

	occasionPatterns = []struct {
		value   string
		pattern *regexp.Regexp
	}{
		{OccasionCasual, regexp.MustCompile(`(đi\s*chơi|dạo\s*phố|hẹn\s*hò|date|casual)`)},
		{OccasionWork, regexp.MustCompile(`(đi\s*làm|công\s*sở|office|work)`)},
		{OccasionSchool, regexp.MustCompile(`(đi\s*học|trường|school)`)},
	}

	stylePatterns = []struct {
		value   string
		pattern *regexp.Regexp
	}{
		{StyleCute, regexp.MustCompile(`(dễ\s*thương|cute|kawaii)`)},
		{StyleCool, regexp.MustCompile(`(ngầu|cá\s*tính|cool)`)},
		{StyleTrendy, regexp.MustCompile(`(trendy|xu\s*hướng|trend|hot|mới\s*nhất)`)},
	}
)

// AnalyzeIntent classifies a message. Pure function, no I/O.
func AnalyzeIntent(message string) IntentAnalysis {
	lower := strings.ToLower(strings.TrimSpace(message))

	var analysis IntentAnalysis
	for _, family := range intentFamilies {
		for _, p := range family.patterns {
			if p.MatchString(lower) {
				analysis.Intents = append(analysis.Intents, family.intent)
				break
			}
		}
	}

	analysis.ProductTypes = extractProductTypes(lower)
	analysis.Situation = extractSituation(lower)

	analysis.Confidence = 0.3
	if len(analysis.Intents) > 0 {
		analysis.Confidence = 0.8
	}
	return analysis
}

// extractProductTypes matches type keywords, then applies the family
// priority rule: when exactly one of the shirt/pants vocabularies fires, the
// result is restricted to that family.
func extractProductTypes(lower string) []catalog.Type {
	var types []catalog.Type
	for _, tp := range typePatterns {
		for _, loc := range tp.match.FindAllStringIndex(lower, -1) {
			if tp.qualified != nil && tp.qualified.MatchString(lower[loc[0]:]) {
				continue
			}
			types = append(types, tp.ptype)
			break
		}
	}

	family := ClassifyFamily(lower)
	if family == FamilyNone {
		return types
	}
	var restricted []catalog.Type
	for _, t := range types {
		if family.Contains(t) {
			restricted = append(restricted, t)
		}
	}
	return restricted
}

func extractSituation(lower string) Situation {
	var s Situation
	if m := weightPattern.FindStringSubmatch(lower); m != nil {
		if kg, err := strconv.Atoi(m[1]); err == nil {
			s.WeightKg = kg
		}
	}
	for _, o := range occasionPatterns {
		if o.pattern.MatchString(lower) {
			s.Occasion = o.value
			break
		}
	}
	for _, st := range stylePatterns {
		if st.pattern.MatchString(lower) {
			s.Style = st.value
			break
		}
	}
	return s
}
