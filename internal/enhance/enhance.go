// Package enhance appends feature cross-sell hints to a model answer
// based on what the user asked about. It never alters the answer text
// itself.
package enhance

import "strings"

var diseaseKeywords = []string{
	"bệnh", "sâu", "rệp", "nấm", "vi khuẩn", "virus", "đốm", "vàng", "nâu",
	"đen", "héo", "thối", "rụng", "cong", "quăn", "lỗ", "khô",
}

var wateringKeywords = []string{
	"tưới", "nước", "khô", "ẩm", "úng",
}

var scheduleKeywords = []string{
	"khi nào", "bao lâu", "thường xuyên", "lịch", "thời gian",
}

const (
	diseaseSuggestion  = "\n\n💡 **Gợi ý**: Để chẩn đoán chính xác hơn, bạn có thể chụp ảnh lá cây và sử dụng tính năng **Nhận diện bệnh qua ảnh** trong ứng dụng."
	wateringSuggestion = "\n\n🌊 **Gợi ý**: Hệ thống có thể phân tích dữ liệu cảm biến và đưa ra **dự báo tưới nước thông minh** dựa trên điều kiện thực tế của cây."
	scheduleSuggestion = "\n\n📅 **Gợi ý**: Bạn có thể thiết lập **lịch tưới tự động** dựa trên AI để cây luôn được chăm sóc tối ưu."
	monitorSuggestion  = "\n\n📊 **Lưu ý**: Hãy theo dõi thường xuyên dữ liệu cảm biến (độ ẩm đất, nhiệt độ, độ ẩm không khí) để chăm sóc cây hiệu quả nhất."
)

func matchesAny(message string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(message, k) {
			return true
		}
	}
	return false
}

// WithSuggestions scans the original user message and appends at most
// one suggestion line per keyword group. The scheduling line is only
// added when a watering keyword is present as well. When no group
// matches, a single generic monitoring line is appended so every
// answer ends with a suggestion block.
func WithSuggestions(responseText, originalMessage string) string {
	msg := strings.ToLower(originalMessage)
	out := responseText

	hasDisease := matchesAny(msg, diseaseKeywords)
	hasWatering := matchesAny(msg, wateringKeywords)

	if hasDisease {
		out += diseaseSuggestion
	}
	if hasWatering {
		out += wateringSuggestion
	}
	if hasWatering && matchesAny(msg, scheduleKeywords) {
		out += scheduleSuggestion
	}
	if !hasDisease && !hasWatering {
		out += monitorSuggestion
	}
	return out
}
