package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/tzuchiao/tutorgraph/agent/agents/orchestrator"
	"github.com/tzuchiao/tutorgraph/agent/agents/stages"
	llmx "github.com/tzuchiao/tutorgraph/agent/llm"
	recordx "github.com/tzuchiao/tutorgraph/agent/record"
	statex "github.com/tzuchiao/tutorgraph/agent/state"
	toolx "github.com/tzuchiao/tutorgraph/agent/tool"
	configx "github.com/tzuchiao/tutorgraph/pkg/config"
	logx "github.com/tzuchiao/tutorgraph/pkg/logger"
	notionx "github.com/tzuchiao/tutorgraph/pkg/notion"
	serverx "github.com/tzuchiao/tutorgraph/server"
)

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storeCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	store, err := statex.NewUpstashRedisStore(*storeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init thread state store")
	}

	recordCfg := configx.MustNew[recordx.Config]("POSTGRES")
	records, err := recordx.NewPostgresStore(*recordCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init learning record store")
	}
	defer records.Close()

	notionCfg := configx.MustNew[notionx.Config]("NOTION")
	publisher, err := toolx.NewNotionPublisher(notionx.MustNew(*notionCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("init note publisher")
	}

	gateway, err := toolx.NewGateway(records, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("init tool gateway")
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	registry, err := stages.NewRegistry(ctx, *llmCfg, gateway)
	if err != nil {
		log.Fatal().Err(err).Msg("init stage registry")
	}

	orch, err := orchestrator.New(store, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("init orchestrator")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv, err := serverx.New(orch, *serverCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init chat server")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("chat server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
