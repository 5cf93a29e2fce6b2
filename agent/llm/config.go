package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
	openrouterx "github.com/tzuchiao/tutorgraph/pkg/openrouter"
)

// Config carries the shared OpenRouter settings plus per-stage overrides. A
// negative temperature override means "use the shared default".
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"120s"`

	RouterModel     string `envconfig:"ROUTER_MODEL" split_words:"true"`
	BackgroundModel string `envconfig:"BACKGROUND_MODEL" split_words:"true"`
	TutorModel      string `envconfig:"TUTOR_MODEL" split_words:"true"`
	SummaryModel    string `envconfig:"SUMMARY_MODEL" split_words:"true"`

	RouterTemperature     float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	BackgroundTemperature float32 `envconfig:"BACKGROUND_TEMPERATURE" split_words:"true" default:"-1"`
	TutorTemperature      float32 `envconfig:"TUTOR_TEMPERATURE" split_words:"true" default:"-1"`
	SummaryTemperature    float32 `envconfig:"SUMMARY_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(stage contractx.Stage) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, temperature float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if temperature >= 0 {
			temp = temperature
		}
	}

	switch stage {
	case contractx.StageRoute:
		override(c.RouterModel, c.RouterTemperature)
	case contractx.StageBackground:
		override(c.BackgroundModel, c.BackgroundTemperature)
	case contractx.StageTutor:
		override(c.TutorModel, c.TutorTemperature)
	case contractx.StageSummary:
		override(c.SummaryModel, c.SummaryTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
	}
}
