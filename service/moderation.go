package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tilnancy/pod-mod/constant"
	"github.com/tilnancy/pod-mod/dto"
)

// ErrParseMismatch reports a completion in which none of the five numbered
// sections could be recognized. The sentinel-filled analysis is still
// returned alongside it.
var ErrParseMismatch = errors.New("moderation reply matched no known section")

const analysisPrompt = `
For the transcript provided analyze and provide the following:
1. Swear Words - List the swear words present in the transcript.
2. Racial Slurs - List the racial slurs present in the transcript
3. Sensitive Content - List any sensitive content present in the transcript
4. Violence and extremism - List any content related to violence and extremism. Praising or encouraging violent acts, terrorism, or extremist groups; step-by-step instructions for weapons/attacks
5. Sexual Content - Content that is sexual in nature

Provide direct answers to questions. Be helpful and concise.
`

type Analyzer interface {
	// Analyze returns the structured analysis for the transcript. On
	// ErrParseMismatch the returned analysis is non-nil and usable.
	Analyze(ctx context.Context, transcript string) (*dto.ContentAnalysis, error)
}

type analyzer struct {
	endpoint string
	model    string
	keys     KeyStore
	client   *http.Client
}

func NewAnalyzer(endpoint, model string, keys KeyStore) Analyzer {
	return &analyzer{
		endpoint: endpoint,
		model:    model,
		keys:     keys,
		client:   &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Analyze sends the transcript plus the fixed instruction prompt to the chat
// completion endpoint. There is no retry; each user action is one attempt.
func (m *analyzer) Analyze(ctx context.Context, transcript string) (*dto.ContentAnalysis, error) {
	zerolog.Ctx(ctx).Info().Int("transcript_len", len(transcript)).Msg("analyzing content")

	key, err := m.keys.GetAPIKey(ctx, openAIKeyName)
	if err != nil {
		return nil, errors.Join(ErrService, err)
	}

	payload, err := json.Marshal(chatRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "system", Content: analysisPrompt},
			{Role: "user", Content: transcript},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: chat completion http %d: %s", ErrService, resp.StatusCode, string(b))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, errors.Join(ErrService, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion carries no choices", ErrService)
	}

	analysis, matched := parseAnalysis(chat.Choices[0].Message.Content)
	if matched == 0 {
		return analysis, ErrParseMismatch
	}
	return analysis, nil
}

type sectionRule struct {
	prefix string
	assign func(a *dto.ContentAnalysis, value string)
}

var sectionRules = []sectionRule{
	{"1. Swear Words", func(a *dto.ContentAnalysis, v string) { a.SwearWords = v }},
	{"2. Racial Slurs", func(a *dto.ContentAnalysis, v string) { a.RacialSlurs = v }},
	{"3. Sensitive Content", func(a *dto.ContentAnalysis, v string) { a.SensitiveContent = v }},
	{"4. Violence and extremism", func(a *dto.ContentAnalysis, v string) { a.ViolenceAndExtremism = v }},
	{"5. Sexual Content", func(a *dto.ContentAnalysis, v string) { a.SexualContent = v }},
}

// parseAnalysis splits the completion into lines and fills each field from
// the first line starting with its numbered prefix. Fields whose prefix never
// appears keep the sentinel. The timestamp is stamped here, at
// response-construction time.
func parseAnalysis(content string) (*dto.ContentAnalysis, int) {
	analysis := &dto.ContentAnalysis{
		SwearWords:           constant.SentinelNoneDetected,
		RacialSlurs:          constant.SentinelNoneDetected,
		SensitiveContent:     constant.SentinelNoneDetected,
		ViolenceAndExtremism: constant.SentinelNoneDetected,
		SexualContent:        constant.SentinelNoneDetected,
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
	}

	seen := make(map[string]bool, len(sectionRules))
	matched := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		for _, rule := range sectionRules {
			if seen[rule.prefix] || !strings.HasPrefix(line, rule.prefix) {
				continue
			}
			rule.assign(analysis, strings.Replace(line, rule.prefix+" - ", "", 1))
			seen[rule.prefix] = true
			matched++
		}
	}
	return analysis, matched
}
