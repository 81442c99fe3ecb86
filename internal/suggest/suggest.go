package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tinoosan/radiofetch/internal/data"
)

const defaultEndpoint = "https://api.openai.com"

const systemPrompt = "Here are the rules you should follow:\n\n" +
	"1. The user will provide you with a list of audio tracks, where each track is separated by a new line.\n\n" +
	"2. Create a valid JSON array containing two audio tracks that will ideally fit existing ones in the list in terms of vibe and mood. " +
	"Objects should have the following fields: title, artist and album.\n\n" +
	"3. Without any additional comments and descriptions. Just array."

// Service suggests tracks that fit an existing playlist.
type Service interface {
	SuggestTracks(ctx context.Context, tracks []data.AudioMetadata) ([]data.AudioMetadata, error)
}

// OpenAIService asks a chat-completion model for playlist suggestions.
type OpenAIService struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

var _ Service = (*OpenAIService)(nil)

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		model:    "gpt-3.5-turbo",
		http:     &http.Client{},
	}
}

// SuggestTracks sends the playlist as "artist - title" lines and parses the
// model's reply as a JSON array of track metadata. A reply that is not valid
// JSON yields an empty list rather than an error.
func (s *OpenAIService) SuggestTracks(ctx context.Context, tracks []data.AudioMetadata) ([]data.AudioMetadata, error) {
	lines := make([]string, 0, len(tracks))
	for _, track := range tracks {
		lines = append(lines, fmt.Sprintf("%s - %s", track.Artist, track.Title))
	}

	payload, err := json.Marshal(map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": strings.Join(lines, "\n")},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai http %d: %s", resp.StatusCode, string(body))
	}

	var reply struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("openai decode: %w", err)
	}
	if len(reply.Choices) == 0 {
		return nil, nil
	}

	var suggestions []data.AudioMetadata
	if err := json.Unmarshal([]byte(reply.Choices[0].Message.Content), &suggestions); err != nil {
		return nil, nil
	}
	return suggestions, nil
}
