package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mintoons/mintoons-backend/models"
)

func TestFallbackOpeningUsesElements(t *testing.T) {
	elements := models.StoryElements{
		Genre:     "fantasy",
		Character: "Luna",
		Setting:   "forest",
		Theme:     "courage",
		Mood:      "mysterious",
		Tone:      "playful",
	}

	opening := FallbackOpening(elements)
	assert.Contains(t, opening, "Luna")
	assert.Contains(t, opening, "forest")
	assert.Contains(t, opening, "courage")
	assert.Contains(t, opening, "mysterious")

	// Thuần túy, không gọi mạng nên hai lần gọi phải y hệt nhau
	assert.Equal(t, opening, FallbackOpening(elements))
}

func TestFallbackContinuationRotates(t *testing.T) {
	seen := map[string]bool{}
	for turn := 1; turn <= 6; turn++ {
		seen[FallbackContinuation(turn)] = true
	}
	assert.Len(t, seen, 6) // 6 lượt đầu không câu nào lặp

	// Xoay vòng sau lượt 6, lượt 0 coi như lượt 1
	assert.Equal(t, FallbackContinuation(1), FallbackContinuation(7))
	assert.Equal(t, FallbackContinuation(1), FallbackContinuation(0))
}

func TestAssessmentFlagged(t *testing.T) {
	cases := map[string]bool{
		"low":      false,
		"medium":   false,
		"high":     true,
		"critical": true,
		"":         false,
	}
	for risk, want := range cases {
		a := Assessment{IntegrityRisk: risk}
		assert.Equal(t, want, a.Flagged(), "risk %q", risk)
	}
}

func TestAssembleStoryText(t *testing.T) {
	turns := []models.Turn{
		{TurnNumber: 1, ChildText: "Luna stepped into the forest.", AiResponse: "The trees whispered."},
		{TurnNumber: 2, ChildText: "She followed the light.  "},
	}

	text := AssembleStoryText("  Once upon a time.  ", turns)
	assert.Equal(t,
		"Once upon a time.\n\nLuna stepped into the forest.\n\nShe followed the light.",
		text)

	// Phản hồi AI không được lẫn vào bản chấm điểm
	assert.NotContains(t, text, "whispered")

	// Freeform chưa có mở đầu riêng
	assert.Equal(t, "She followed the light.",
		AssembleStoryText("", turns[1:]))
}
