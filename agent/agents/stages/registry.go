package stages

import (
	"context"
	"fmt"

	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
	llmx "github.com/tzuchiao/tutorgraph/agent/llm"
	promptx "github.com/tzuchiao/tutorgraph/agent/prompt"
)

type registryImpl struct {
	router     contractx.Router
	elicitor   contractx.Elicitor
	tutor      contractx.Tutor
	summarizer contractx.Summarizer
}

func (r *registryImpl) Router() contractx.Router         { return r.router }
func (r *registryImpl) Elicitor() contractx.Elicitor     { return r.elicitor }
func (r *registryImpl) Tutor() contractx.Tutor           { return r.tutor }
func (r *registryImpl) Summarizer() contractx.Summarizer { return r.summarizer }

// NewRegistry builds every stage invoker from the LLM config and the embedded
// prompts. The summarizer gets the tool gateway for record retrieval and note
// export.
func NewRegistry(ctx context.Context, cfg llmx.Config, gateway contractx.ToolGateway) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gateway == nil {
		return nil, fmt.Errorf("%w: tool gateway is required", contractx.ErrValidation)
	}

	prompts, err := promptx.LoadPromptSet()
	if err != nil {
		return nil, err
	}

	routerCfg := cfg.OpenRouterFor(contractx.StageRoute)
	routerModel, err := routerCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrModelInvoke, err)
	}
	backgroundCfg := cfg.OpenRouterFor(contractx.StageBackground)
	backgroundModel, err := backgroundCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create background model: %v", contractx.ErrModelInvoke, err)
	}
	tutorCfg := cfg.OpenRouterFor(contractx.StageTutor)
	tutorModel, err := tutorCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create tutor model: %v", contractx.ErrModelInvoke, err)
	}
	summaryCfg := cfg.OpenRouterFor(contractx.StageSummary)
	summaryModel, err := summaryCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create summary model: %v", contractx.ErrModelInvoke, err)
	}

	router, err := newRouter(ctx, routerModel, prompts.Router)
	if err != nil {
		return nil, err
	}
	elicitor, err := newElicitor(ctx, backgroundModel, prompts.Background)
	if err != nil {
		return nil, err
	}
	tutor, err := newTutor(ctx, tutorModel, prompts.Tutor)
	if err != nil {
		return nil, err
	}
	summarizer, err := newSummarizer(ctx, summaryModel, prompts.Summary, gateway)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:     router,
		elicitor:   elicitor,
		tutor:      tutor,
		summarizer: summarizer,
	}, nil
}
