package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name       string
		message    string
		wantValid  bool
		wantReason string
	}{
		{
			name:       "plant question",
			message:    "Lá cây của tôi bị vàng",
			wantValid:  true,
			wantReason: ReasonValid,
		},
		{
			name:       "watering question",
			message:    "Khi nào nên tưới cây?",
			wantValid:  true,
			wantReason: ReasonValid,
		},
		{
			name:       "forbidden weather",
			message:    "Thời tiết hôm nay thế nào?",
			wantReason: ReasonForbiddenTopic,
		},
		{
			name:       "forbidden finance",
			message:    "Nên đầu tư bitcoin không?",
			wantReason: ReasonForbiddenTopic,
		},
		{
			name:       "vague phrase",
			message:    "giúp tôi với",
			wantReason: ReasonVagueQuestion,
		},
		{
			name:       "generic stem without plant keyword",
			message:    "tại sao lại thế",
			wantReason: ReasonVagueQuestion,
		},
		{
			name:       "greeting passes without plant keyword",
			message:    "xin chào",
			wantValid:  true,
			wantReason: ReasonValid,
		},
		{
			name:       "english greeting",
			message:    "hello",
			wantValid:  true,
			wantReason: ReasonValid,
		},
		{
			name:       "unrelated statement",
			message:    "abc xyz",
			wantReason: ReasonNotPlantRelated,
		},
		{
			name:       "empty message",
			message:    "",
			wantReason: ReasonVagueQuestion,
		},
		{
			name:       "whitespace only",
			message:    "   \t  ",
			wantReason: ReasonVagueQuestion,
		},
		{
			name:       "uppercase is normalized",
			message:    "LÁ CÂY BỊ ĐỐM NÂU",
			wantValid:  true,
			wantReason: ReasonValid,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Classify(tc.message)
			assert.Equal(t, tc.wantValid, d.Valid)
			assert.Equal(t, tc.wantReason, d.Reason)
			if !tc.wantValid {
				assert.NotEmpty(t, d.Suggestion)
			}
		})
	}
}

// A forbidden phrase rejects even when a plant keyword co-occurs; the
// check ordering is a policy, not an accident.
func TestClassifyForbiddenPrecedence(t *testing.T) {
	messages := []string{
		"thời tiết ảnh hưởng đến cây không",
		"cây của tôi và trận đấu world cup",
		"tưới cây trước khi đi du lịch",
	}

	for _, msg := range messages {
		d := Classify(msg)
		assert.False(t, d.Valid, "message %q must be rejected", msg)
		assert.Equal(t, ReasonForbiddenTopic, d.Reason, "message %q", msg)
		assert.Equal(t, RedirectSuggestion, d.Suggestion)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		first := Classify("Thời tiết hôm nay thế nào?")
		second := Classify("Thời tiết hôm nay thế nào?")
		assert.Equal(t, first, second)
	}
}
