package ai

// HumanStopSequence ends a completion before the model starts a new human turn.
const HumanStopSequence = "\n\nHuman:"

// SamplingParams are the generation settings sent with every request.
type SamplingParams struct {
	MaxTokens     int
	Temperature   float64
	TopP          float64
	StopSequences []string
}

// DefaultSampling returns the fixed evaluation settings.
func DefaultSampling() SamplingParams {
	return SamplingParams{
		MaxTokens:     4096,
		Temperature:   0.3,
		TopP:          0.9,
		StopSequences: []string{HumanStopSequence},
	}
}

func (p SamplingParams) orDefault() SamplingParams {
	if p.MaxTokens <= 0 {
		return DefaultSampling()
	}
	return p
}
