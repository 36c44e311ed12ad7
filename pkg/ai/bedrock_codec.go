package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// bedrockCodec translates between the prompt and one vendor's Bedrock body format.
type bedrockCodec interface {
	vendor() string
	encode(prompt string, params SamplingParams) ([]byte, error)
	decode(body []byte) (RawResponse, error)
}

// geographic prefixes used by cross-region inference profiles, e.g. "us.anthropic.claude-...".
var inferenceProfilePrefixes = map[string]struct{}{
	"us": {}, "eu": {}, "apac": {}, "global": {},
}

func codecFor(modelID string) (bedrockCodec, error) {
	parts := strings.Split(strings.TrimSpace(modelID), ".")
	vendor := parts[0]
	if _, ok := inferenceProfilePrefixes[vendor]; ok && len(parts) > 1 {
		vendor = parts[1]
	}

	switch vendor {
	case "anthropic":
		return anthropicTextCodec{}, nil
	case "ai21":
		return jurassicCodec{}, nil
	case "amazon":
		return titanCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelID)
	}
}

// anthropicTextCodec speaks the Claude text-completions body.
type anthropicTextCodec struct{}

type anthropicTextRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature"`
	TopP              float64  `json:"top_p"`
	StopSequences     []string `json:"stop_sequences"`
}

type anthropicTextResponse struct {
	Completion *string `json:"completion"`
	StopReason string  `json:"stop_reason"`
}

func (anthropicTextCodec) vendor() string { return "anthropic" }

func (anthropicTextCodec) encode(prompt string, params SamplingParams) ([]byte, error) {
	return json.Marshal(anthropicTextRequest{
		Prompt:            "\n\nHuman: " + prompt + "\n\nAssistant:",
		MaxTokensToSample: params.MaxTokens,
		Temperature:       params.Temperature,
		TopP:              params.TopP,
		StopSequences:     params.StopSequences,
	})
}

func (anthropicTextCodec) decode(body []byte) (RawResponse, error) {
	var resp anthropicTextResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return RawResponse{}, fmt.Errorf("decode anthropic response: %w", err)
	}
	out := RawResponse{StopReason: resp.StopReason}
	if resp.Completion != nil {
		out.Text = *resp.Completion
	}
	return out, nil
}

// jurassicCodec speaks the AI21 Jurassic-2 body.
type jurassicCodec struct{}

type jurassicRequest struct {
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"maxTokens"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
	StopSequences []string `json:"stopSequences"`
}

type jurassicResponse struct {
	Completions []struct {
		Data struct {
			Text string `json:"text"`
		} `json:"data"`
		FinishReason struct {
			Reason string `json:"reason"`
		} `json:"finishReason"`
	} `json:"completions"`
}

func (jurassicCodec) vendor() string { return "ai21" }

func (jurassicCodec) encode(prompt string, params SamplingParams) ([]byte, error) {
	return json.Marshal(jurassicRequest{
		Prompt:        prompt,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		StopSequences: params.StopSequences,
	})
}

func (jurassicCodec) decode(body []byte) (RawResponse, error) {
	var resp jurassicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return RawResponse{}, fmt.Errorf("decode ai21 response: %w", err)
	}
	if len(resp.Completions) == 0 {
		return RawResponse{}, nil
	}
	return RawResponse{
		Text:       resp.Completions[0].Data.Text,
		StopReason: resp.Completions[0].FinishReason.Reason,
	}, nil
}

// titanCodec speaks the Amazon Titan text body. Titan only accepts its own
// stop tokens, so the human-turn sequence is replaced.
type titanCodec struct{}

var titanStopSequences = []string{"User:"}

type titanRequest struct {
	InputText            string              `json:"inputText"`
	TextGenerationConfig titanGenerateConfig `json:"textGenerationConfig"`
}

type titanGenerateConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
	StopSequences []string `json:"stopSequences"`
}

type titanResponse struct {
	InputTextTokenCount int64 `json:"inputTextTokenCount"`
	Results             []struct {
		TokenCount       int64  `json:"tokenCount"`
		OutputText       string `json:"outputText"`
		CompletionReason string `json:"completionReason"`
	} `json:"results"`
}

func (titanCodec) vendor() string { return "amazon" }

func (titanCodec) encode(prompt string, params SamplingParams) ([]byte, error) {
	return json.Marshal(titanRequest{
		InputText: prompt,
		TextGenerationConfig: titanGenerateConfig{
			MaxTokenCount: params.MaxTokens,
			Temperature:   params.Temperature,
			TopP:          params.TopP,
			StopSequences: titanStopSequences,
		},
	})
}

func (titanCodec) decode(body []byte) (RawResponse, error) {
	var resp titanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return RawResponse{}, fmt.Errorf("decode titan response: %w", err)
	}
	out := RawResponse{InputTokens: resp.InputTextTokenCount}
	if len(resp.Results) > 0 {
		out.Text = resp.Results[0].OutputText
		out.StopReason = resp.Results[0].CompletionReason
		out.OutputTokens = resp.Results[0].TokenCount
	}
	return out, nil
}
