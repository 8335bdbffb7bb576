package llm

import (
	"fmt"
	"strings"

	"github.com/greenmate/plantcare/internal/models"
)

// systemPrompt pins the assistant to the plant-care domain and the
// short Vietnamese answer style. Kept as one block so the wording is
// reviewable in a single place.
const systemPrompt = `Bạn là một chuyên gia tư vấn cây trồng AI thông minh. Nhiệm vụ của bạn:

PHẠM VI HOẠT ĐỘNG NGHIÊM NGẶT:
- CHỈ trả lời các câu hỏi liên quan đến: cây trồng, chăm sóc cây, bệnh cây, sâu hại, tưới nước, phân bón, ánh sáng, nhiệt độ, độ ẩm, đất trồng, nhân giống cây
- TUYỆT ĐỐI TỪ CHỐI: thời tiết, tin tức, giải trí, nấu ăn, y tế con người, chính trị, thể thao, công nghệ không liên quan đến cây

CÁCH THỨC TRẢ LỜI:
- Trả lời bằng tiếng Việt, ngắn gọn và dễ hiểu (tối đa 200 từ)
- Đưa ra lời khuyên thực tế, khoa học và có thể áp dụng ngay
- Luôn khuyến khích quan sát cây cẩn thận và theo dõi thay đổi

KHAI THÁC NGỮ CẢNH:
- Ưu tiên sử dụng dữ liệu cảm biến thực tế (độ ẩm đất, nhiệt độ, độ ẩm không khí)
- Tham khảo lịch sử tưới nước và chăm sóc
- Đưa ra khuyến nghị cụ thể cho từng loại cây`

// historyDepth bounds how many prior turns are replayed for
// conversational continuity.
const historyDepth = 3

// Domain tuning constants used when rendering sensor data into the
// context block. Treated as configuration, not invariants.
const (
	moistureUrgentBelow = 30.0
	moistureHighAbove   = 80.0
)

// BuildMessages assembles the full prompt: system instruction, one
// context block with whichever fields are present, up to historyDepth
// prior turns, then the user message. An empty context yields no
// context block at all.
func BuildMessages(userMessage string, pc *models.PlantContext) []Message {
	messages := []Message{{Role: "system", Content: systemPrompt}}

	if block := renderContext(pc); block != "" {
		messages = append(messages, Message{Role: "user", Content: block})
	}

	if pc != nil && len(pc.ChatHistory) > 0 {
		turns := pc.ChatHistory
		if len(turns) > historyDepth {
			turns = turns[:historyDepth]
		}
		// History arrives most-recent first; replay oldest first.
		for i := len(turns) - 1; i >= 0; i-- {
			messages = append(messages,
				Message{Role: "user", Content: turns[i].UserMessage},
				Message{Role: "assistant", Content: turns[i].AIResponse},
			)
		}
	}

	return append(messages, Message{Role: "user", Content: userMessage})
}

func renderContext(pc *models.PlantContext) string {
	if pc == nil || (pc.PlantInfo == nil && pc.SensorData == nil && len(pc.WateringHistory) == 0) {
		return ""
	}

	var b strings.Builder
	b.WriteString("THÔNG TIN NGỮ CẢNH:\n")

	if p := pc.PlantInfo; p != nil {
		fmt.Fprintf(&b, "- Tên cây: %s\n", p.Name)
		fmt.Fprintf(&b, "- Loại cây: %s\n", p.Type)
		if p.AgeMonths > 0 {
			fmt.Fprintf(&b, "- Tuổi cây: %d tháng\n", p.AgeMonths)
		}
		if p.CareNotes != "" {
			fmt.Fprintf(&b, "- Ghi chú chăm sóc: %s\n", p.CareNotes)
		}
	}

	if s := pc.SensorData; s != nil {
		fmt.Fprintf(&b, "- Độ ẩm đất: %.0f%%\n", s.SoilMoisture)
		fmt.Fprintf(&b, "- Nhiệt độ: %.1f°C\n", s.Temperature)
		fmt.Fprintf(&b, "- Độ ẩm không khí: %.0f%%\n", s.Humidity)
		switch {
		case s.SoilMoisture < moistureUrgentBelow:
			b.WriteString("- CẢNH BÁO: độ ẩm đất thấp, cây có thể đang thiếu nước\n")
		case s.SoilMoisture > moistureHighAbove:
			b.WriteString("- CẢNH BÁO: độ ẩm đất cao, chú ý nguy cơ úng rễ\n")
		}
	}

	if len(pc.WateringHistory) > 0 {
		b.WriteString("LỊCH SỬ TƯỚI GẦN ĐÂY:\n")
		for _, w := range pc.WateringHistory {
			fmt.Fprintf(&b, "- %s: %dml (%s)\n",
				w.Timestamp.Format("02/01 15:04"), w.AmountML, w.Method)
		}
	}

	return b.String()
}
