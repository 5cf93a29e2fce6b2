package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tzuchiao/tutorgraph/agent/nodes"
)

// compileTurnGraph wires the fixed stage graph for one turn:
//
//	START -> new_turn -> load_thread -> route_intent
//	route_intent: no intent -> finalize_turn, summary -> summarize,
//	              otherwise -> elicit_background
//	elicit_background: fact resolved -> tutor, clarifying question -> save_thread
//	tutor/summarize -> save_thread -> finalize_turn -> END
func (o *Orchestrator) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("new_turn",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.TurnState, error) {
			return nodex.NewTurn(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node new_turn: %w", err)
	}

	if err := graph.AddLambdaNode("load_thread",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.LoadThread(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_thread: %w", err)
	}

	if err := graph.AddLambdaNode("route_intent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.RouteIntent(ctx, in, o.stages.Router())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_intent: %w", err)
	}

	if err := graph.AddLambdaNode("elicit_background",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.ElicitBackground(ctx, in, o.stages.Elicitor())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node elicit_background: %w", err)
	}

	if err := graph.AddLambdaNode("tutor",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.Tutor(ctx, in, o.stages.Tutor())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node tutor: %w", err)
	}

	if err := graph.AddLambdaNode("summarize",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.Summarize(ctx, in, o.stages.Summarizer())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node summarize: %w", err)
	}

	if err := graph.AddLambdaNode("save_thread",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.SaveThread(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_thread: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_turn",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.TurnState) (nodex.GraphOutput, error) {
			return nodex.FinalizeTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_turn: %w", err)
	}

	routeBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.TurnState) (string, error) {
			switch {
			case in == nil:
				return "", fmt.Errorf("turn state is nil")
			case !in.Routed:
				return "finalize_turn", nil
			case in.Thread.LastIntent == intentSummary:
				return "summarize", nil
			default:
				return "elicit_background", nil
			}
		},
		map[string]bool{
			"finalize_turn":     true,
			"summarize":         true,
			"elicit_background": true,
		},
	)
	if err := graph.AddBranch("route_intent", routeBranch); err != nil {
		return nil, fmt.Errorf("add route branch: %w", err)
	}

	backgroundBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.TurnState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("turn state is nil")
			}
			if in.BackgroundReady {
				return "tutor", nil
			}
			return "save_thread", nil
		},
		map[string]bool{
			"tutor":       true,
			"save_thread": true,
		},
	)
	if err := graph.AddBranch("elicit_background", backgroundBranch); err != nil {
		return nil, fmt.Errorf("add background branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "new_turn"},
		{"new_turn", "load_thread"},
		{"load_thread", "route_intent"},
		{"tutor", "save_thread"},
		{"summarize", "save_thread"},
		{"save_thread", "finalize_turn"},
		{"finalize_turn", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
