package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestTextFromGenAI(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantCat Category
	}{
		{name: "nil response", resp: nil, wantCat: CategoryEmpty},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			},
			wantCat: CategorySafety,
		},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantCat: CategoryEmpty},
		{
			name: "finish reason safety",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			wantCat: CategorySafety,
		},
		{
			name: "empty text",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(" ", genai.RoleModel)}},
			},
			wantCat: CategoryEmpty,
		},
		{
			name: "text",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content:      genai.NewContentFromText(`{"a":1}`, genai.RoleModel),
					FinishReason: genai.FinishReasonStop,
				}},
			},
			want: `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := textFromGenAI(tt.resp)
			if tt.wantCat != "" {
				assert.True(t, IsCategory(err, tt.wantCat), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyGenAIError(t *testing.T) {
	err := classifyGenAIError(genai.APIError{Code: 429, Message: "quota", Status: "RESOURCE_EXHAUSTED"})
	var me *Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, CategoryStatus, me.Category)
	assert.Equal(t, 429, me.StatusCode)

	err = classifyGenAIError(genai.APIError{Code: 401, Message: "bad key"})
	assert.True(t, IsCategory(err, CategoryCredentials))

	err = classifyGenAIError(context.DeadlineExceeded)
	assert.True(t, IsCategory(err, CategoryTimeout))
}

func TestNewGenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewGenAIGenerator(context.Background(), GenAIConfig{Model: "m"}, nil)
	assert.True(t, IsCategory(err, CategoryCredentials))
}
