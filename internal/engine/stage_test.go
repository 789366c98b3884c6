package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

func user(content string) model.Message {
	return model.Message{Role: model.RoleUser, Content: content}
}

func assistant(content string) model.Message {
	return model.Message{Role: model.RoleAssistant, Content: content}
}

func TestShortHistoryIsAlwaysOpening(t *testing.T) {
	// The override applies even when the model says otherwise.
	classifier := NewStageClassifier(&stubClient{reply: "deciding"}, time.Second, logger.NewNop())
	ctx := context.Background()

	assert.Equal(t, model.StageOpening, classifier.Classify(ctx, nil))
	assert.Equal(t, model.StageOpening, classifier.Classify(ctx, []model.Message{user("hello")}))
	assert.Equal(t, model.StageOpening, classifier.Classify(ctx, []model.Message{
		user("hello"), assistant("hi there, what are you looking for?"),
	}))
}

func TestClassifyUsesValidStageLabel(t *testing.T) {
	classifier := NewStageClassifier(&stubClient{reply: "deciding"}, time.Second, logger.NewNop())

	hist := []model.Message{user("qqq"), assistant("qqq"), user("qqq")}
	assert.Equal(t, model.StageDeciding, classifier.Classify(context.Background(), hist))
}

func TestClassifyInvalidStageFallsBack(t *testing.T) {
	classifier := NewStageClassifier(&stubClient{reply: "confused"}, time.Second, logger.NewNop())

	hist := []model.Message{
		user("qqq"), assistant("qqq"), user("find some concerts"),
	}
	assert.Equal(t, model.StageSearching, classifier.Classify(context.Background(), hist))
}

func TestFallbackStagePriorities(t *testing.T) {
	tests := []struct {
		name string
		hist []model.Message
		want model.Stage
	}{
		{
			name: "closing beats searching",
			hist: []model.Message{assistant("qqq"), user("thanks, find more later")},
			want: model.StageClosing,
		},
		{
			name: "searching from last user message",
			hist: []model.Message{assistant("qqq"), user("find jazz concerts")},
			want: model.StageSearching,
		},
		{
			name: "recommending from last assistant message",
			hist: []model.Message{user("qqq"), assistant("here are some picks")},
			want: model.StageRecommending,
		},
		{
			name: "deciding from last user message",
			hist: []model.Message{assistant("qqq"), user("I will register tonight")},
			want: model.StageDeciding,
		},
		{
			name: "clarifying from either side",
			hist: []model.Message{assistant("do you mean downtown?"), user("qqq")},
			want: model.StageClarifying,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackStage(tt.hist))
		})
	}
}

func TestFallbackStageLengthHeuristic(t *testing.T) {
	neutral := func(n int) []model.Message {
		hist := make([]model.Message, n)
		for i := range hist {
			if i%2 == 0 {
				hist[i] = user("qqq")
			} else {
				hist[i] = assistant("qqq")
			}
		}
		return hist
	}

	assert.Equal(t, model.StageExploring, FallbackStage(nil))
	assert.Equal(t, model.StageExploring, FallbackStage(neutral(4)))
	assert.Equal(t, model.StageClarifying, FallbackStage(neutral(8)))
	assert.Equal(t, model.StageSearching, FallbackStage(neutral(12)))
	assert.Equal(t, model.StageRecommending, FallbackStage(neutral(13)))
}

func TestFallbackStageIsTotal(t *testing.T) {
	for n := 0; n <= 16; n++ {
		hist := make([]model.Message, n)
		for i := range hist {
			hist[i] = user("qqq")
		}
		got := FallbackStage(hist)
		assert.True(t, model.ValidStage(string(got)), "history length %d", n)
	}
}

func TestStageContextForCoversEveryStage(t *testing.T) {
	for _, stage := range model.AllStages {
		ctx := StageContextFor(stage)
		assert.NotEmpty(t, ctx.Focus, "stage %s", stage)
		assert.NotEmpty(t, ctx.QuestionStyle, "stage %s", stage)
	}
}
