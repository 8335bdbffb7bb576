// Package scope classifies inbound messages as in-domain (plant care)
// or not. Classification is pure lexical matching over fixed keyword
// tables so the policy stays inspectable and deterministic.
package scope

import "strings"

// Reason codes for a classification decision.
const (
	ReasonValid           = "valid_plant_question"
	ReasonForbiddenTopic  = "forbidden_topic"
	ReasonVagueQuestion   = "vague_question"
	ReasonNotPlantRelated = "not_plant_related"
)

// Canned redirect strings returned with rejected messages.
const (
	RedirectSuggestion = "Tôi chỉ có thể tư vấn về cây trồng và chăm sóc cây. Bạn có câu hỏi gì về cây của mình không?"
	VagueSuggestion    = "Bạn có thể hỏi cụ thể hơn về cây trồng không? Ví dụ: \"Lá cây của tôi bị vàng\", \"Khi nào nên tưới cây?\", \"Cây bị sâu hại phải làm sao?\""
)

// Decision is the outcome of classifying one message.
type Decision struct {
	Valid      bool
	Reason     string
	Suggestion string
}

// forbiddenTopics are checked before anything else. A forbidden phrase
// rejects the message even when a plant keyword co-occurs; the ordering
// is a deliberate policy and must not be swapped with the plant check.
var forbiddenTopics = []string{
	// weather and climate
	"thời tiết", "weather", "mưa", "bão", "lũ",
	// human medicine
	"cảm cúm", "cảm lạnh", "sốt", "đau đầu", "bác sĩ", "bệnh viện", "thuốc người", "sức khỏe người",
	// cooking
	"nấu ăn", "món ăn", "công thức", "phở", "cơm", "chế biến thức ăn",
	// entertainment
	"phim", "nhạc", "game", "thể thao", "bóng đá", "ca sĩ", "diễn viên",
	// unrelated technology
	"điện thoại", "máy tính", "internet", "facebook", "youtube", "wifi",
	// politics
	"chính trị", "bầu cử", "tổng thống", "thủ tướng", "đảng",
	// finance
	"bitcoin", "tiền", "đầu tư", "chứng khoán", "ngân hàng", "vay vốn",
	// travel
	"du lịch", "khách sạn", "máy bay", "tàu xe", "đà lạt",
	// sports
	"đội bóng", "thắng thua", "trận đấu", "world cup",
}

var plantKeywords = []string{
	// anatomy
	"cây", "lá", "rễ", "thân", "cành", "hoa", "quả", "bông", "nụ",
	// care actions
	"tưới", "nước", "phân", "bón", "cắt", "tỉa", "trồng", "gieo", "ươm",
	// disease and pests
	"bệnh", "sâu", "rệp", "nấm", "vi khuẩn", "virus", "héo", "úng",
	// symptoms
	"vàng", "nâu", "đen", "đốm", "rụng", "khô", "thối", "cong", "quăn",
	// environment
	"đất", "chậu", "ánh sáng", "nắng", "bóng râm", "nhiệt độ", "độ ẩm",
	// common plants
	"hoa hồng", "lan", "sen đá", "xương rồng", "cactus", "bonsai", "cảnh",
	"rau", "củ", "gia vị", "thảo mộc", "dược liệu",
	// tools
	"xẻng", "kéo", "vòi", "phun", "thuốc",
}

// vaguePhrases reject on their own; genericStems reject only when no
// plant keyword accompanies them.
var vaguePhrases = []string{
	"làm sao để tốt hơn", "thế nào là đúng", "tại sao lại như vậy",
	"có nên làm không", "có thể giúp", "giúp tôi với",
}

var genericStems = []string{
	"làm sao", "thế nào", "tại sao", "có nên", "giúp tôi",
}

var greetings = []string{
	"chào", "hello", "hi", "xin chào", "cảm ơn", "thanks",
}

func containsAny(message string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(message, p) {
			return true
		}
	}
	return false
}

// Classify decides whether a message is something the assistant should
// answer. It is total: any input, including the empty string, yields a
// decision.
func Classify(message string) Decision {
	msg := strings.ToLower(strings.TrimSpace(message))

	if msg == "" {
		return Decision{Reason: ReasonVagueQuestion, Suggestion: VagueSuggestion}
	}

	// Forbidden topics take precedence over everything, including
	// co-occurring plant keywords.
	if containsAny(msg, forbiddenTopics) {
		return Decision{Reason: ReasonForbiddenTopic, Suggestion: RedirectSuggestion}
	}

	if containsAny(msg, plantKeywords) {
		return Decision{Valid: true, Reason: ReasonValid}
	}

	if containsAny(msg, vaguePhrases) || containsAny(msg, genericStems) {
		return Decision{Reason: ReasonVagueQuestion, Suggestion: VagueSuggestion}
	}

	// Greetings always pass even without a plant keyword.
	if containsAny(msg, greetings) {
		return Decision{Valid: true, Reason: ReasonValid}
	}

	return Decision{Reason: ReasonNotPlantRelated, Suggestion: RedirectSuggestion}
}
