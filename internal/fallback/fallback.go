// Package fallback produces deterministic canned answers when the
// inference path is unavailable or fails. It does no I/O and never
// fails, so the orchestrator can always hand the user something.
package fallback

import (
	"strings"

	"github.com/greenmate/plantcare/internal/scope"
)

// Result mirrors the shape of a successful inference result so the
// orchestrator can substitute it transparently.
type Result struct {
	Text         string
	Confidence   float64
	Fallback     bool
	Filtered     bool
	FilterReason string
}

const degradedNotice = "\n\n⚠️ Dịch vụ AI tạm thời không khả dụng, đây là phản hồi cơ bản."

const genericAnswer = "Tôi hiểu bạn đang hỏi về cây trồng. Do dịch vụ AI tạm thời không khả dụng, tôi khuyên bạn:\n\n" +
	"1. Quan sát cây cẩn thận\n" +
	"2. Kiểm tra độ ẩm đất\n" +
	"3. Chụp ảnh và sử dụng tính năng nhận diện bệnh\n" +
	"4. Thử lại sau ít phút\n\n" +
	"⚠️ Dịch vụ AI sẽ sớm hoạt động trở lại."

// cannedAnswers is iterated in order; the first matching keyword wins.
// A slice keeps the iteration deterministic.
var cannedAnswers = []struct {
	keyword string
	answer  string
}{
	{"lá vàng", "Lá vàng có thể do thiếu nước, thừa nước, thiếu dinh dưỡng hoặc bệnh. Hãy kiểm tra độ ẩm đất và quan sát thêm các triệu chứng khác."},
	{"tưới nước", "Tần suất tưới nước phụ thuộc vào loại cây, thời tiết và độ ẩm đất. Hãy kiểm tra độ ẩm đất bằng cách nhấn ngón tay xuống đất 2-3cm."},
	{"phân bón", "Nên bón phân vào buổi sáng sớm hoặc chiều mát. Sử dụng phân hữu cơ hoặc phân NPK theo hướng dẫn trên bao bì."},
	{"bệnh cây", "Để chẩn đoán chính xác bệnh cây, bạn có thể sử dụng tính năng nhận diện bệnh qua ảnh trong ứng dụng."},
}

// Respond builds a fallback answer for the message. Out-of-scope
// messages get the filter's canned suggestion verbatim with full
// confidence, since the rejection itself is certain; in-scope messages
// get a keyword-matched or generic degraded answer with confidence 0.
func Respond(message string) Result {
	decision := scope.Classify(message)
	if !decision.Valid {
		return Result{
			Text:         decision.Suggestion,
			Confidence:   1.0,
			Fallback:     true,
			Filtered:     true,
			FilterReason: decision.Reason,
		}
	}

	msg := strings.ToLower(message)
	for _, c := range cannedAnswers {
		if strings.Contains(msg, c.keyword) {
			return Result{Text: c.answer + degradedNotice, Fallback: true}
		}
	}

	return Result{Text: genericAnswer, Fallback: true}
}
