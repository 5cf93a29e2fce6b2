package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/background.txt
	backgroundRaw string

	//go:embed template/tutor.txt
	tutorRaw string

	//go:embed template/summary.txt
	summaryRaw string
)

// PromptSet holds the system prompts for every stage.
type PromptSet struct {
	Router     string
	Background string
	Tutor      string
	Summary    string
}

func LoadPromptSet() (PromptSet, error) {
	set := PromptSet{
		Router:     strings.TrimSpace(routerRaw),
		Background: strings.TrimSpace(backgroundRaw),
		Tutor:      strings.TrimSpace(tutorRaw),
		Summary:    strings.TrimSpace(summaryRaw),
	}

	for name, content := range map[string]string{
		"router":     set.Router,
		"background": set.Background,
		"tutor":      set.Tutor,
		"summary":    set.Summary,
	} {
		if content == "" {
			return PromptSet{}, fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}

	return set, nil
}
