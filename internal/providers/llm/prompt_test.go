package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmate/plantcare/internal/models"
)

func TestBuildMessagesEmptyContext(t *testing.T) {
	for _, pc := range []*models.PlantContext{nil, {}} {
		messages := BuildMessages("Lá vàng phải làm sao?", pc)

		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].Role)
		assert.Equal(t, "user", messages[1].Role)
		assert.Equal(t, "Lá vàng phải làm sao?", messages[1].Content)
	}
}

func TestBuildMessagesRendersPresentFieldsOnly(t *testing.T) {
	pc := &models.PlantContext{
		SensorData: &models.SensorSnapshot{
			SoilMoisture: 22,
			Temperature:  31.5,
			Humidity:     60,
		},
	}

	messages := BuildMessages("Cây có sao không?", pc)
	require.Len(t, messages, 3)

	block := messages[1].Content
	assert.Contains(t, block, "Độ ẩm đất: 22%")
	assert.Contains(t, block, "Nhiệt độ: 31.5°C")
	assert.NotContains(t, block, "Loại cây")
	assert.NotContains(t, block, "LỊCH SỬ TƯỚI")
	// Below the urgency threshold the context flags low moisture.
	assert.Contains(t, block, "độ ẩm đất thấp")
}

func TestBuildMessagesFullContext(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	pc := &models.PlantContext{
		PlantInfo: &models.Plant{Name: "Hoa hồng ban công", Type: "hoa hồng", AgeMonths: 8},
		SensorData: &models.SensorSnapshot{
			SoilMoisture: 55,
			Temperature:  26,
			Humidity:     70,
		},
		WateringHistory: []models.WateringEvent{
			{AmountML: 250, Method: "manual", Timestamp: now},
		},
		ChatHistory: []models.ConversationTurn{
			{UserMessage: "câu hỏi mới nhất", AIResponse: "trả lời mới nhất"},
			{UserMessage: "câu hỏi cũ", AIResponse: "trả lời cũ"},
		},
	}

	messages := BuildMessages("Còn gì cần chú ý?", pc)

	// system + context + 2 history pairs + user message
	require.Len(t, messages, 7)

	block := messages[1].Content
	assert.Contains(t, block, "Tên cây: Hoa hồng ban công")
	assert.Contains(t, block, "Tuổi cây: 8 tháng")
	assert.Contains(t, block, "250ml (manual)")
	assert.NotContains(t, block, "CẢNH BÁO")

	// History is replayed oldest first for continuity.
	assert.Equal(t, "câu hỏi cũ", messages[2].Content)
	assert.Equal(t, "trả lời cũ", messages[3].Content)
	assert.Equal(t, "câu hỏi mới nhất", messages[4].Content)
	assert.Equal(t, "Còn gì cần chú ý?", messages[6].Content)
}

func TestBuildMessagesHistoryDepthBounded(t *testing.T) {
	pc := &models.PlantContext{
		ChatHistory: []models.ConversationTurn{
			{UserMessage: "t5"}, {UserMessage: "t4"}, {UserMessage: "t3"},
			{UserMessage: "t2"}, {UserMessage: "t1"},
		},
	}

	messages := BuildMessages("msg", pc)

	// system + 3 pairs + user message; older turns are dropped.
	require.Len(t, messages, 8)
	assert.Equal(t, "t3", messages[1].Content)
}
