package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	rediscache "github.com/davidbz/basalt/internal/cache/redis"
	"github.com/davidbz/basalt/internal/codec"
	"github.com/davidbz/basalt/internal/config"
	"github.com/davidbz/basalt/internal/domain"
	"github.com/davidbz/basalt/internal/http"
	"github.com/davidbz/basalt/internal/http/middleware"
	"github.com/davidbz/basalt/internal/observability"
	"github.com/davidbz/basalt/internal/transport/bedrock"
	"github.com/davidbz/basalt/internal/transport/echo"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server) {
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func() domain.EventPublisher {
		return observability.NewEventBus(slog.Default())
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Model catalog
	if err := container.Provide(domain.DefaultCatalog); err != nil {
		log.Fatalf("Failed to provide catalog: %v", err)
	}

	// Payload codec
	if err := container.Provide(func() domain.PayloadCodec {
		return codec.New()
	}); err != nil {
		log.Fatalf("Failed to provide codec: %v", err)
	}

	// Transport, selected by configuration
	if err := container.Provide(func(
		transportCfg *config.TransportConfig,
		bedrockCfg *bedrock.Config,
	) (domain.ModelInvoker, error) {
		switch transportCfg.Mode {
		case "echo":
			return echo.NewClient(), nil
		case "bedrock":
			return bedrock.NewClient(context.Background(), *bedrockCfg)
		default:
			return nil, fmt.Errorf("unknown transport mode: %s", transportCfg.Mode)
		}
	}); err != nil {
		log.Fatalf("Failed to provide invoker: %v", err)
	}

	// Response cache (optional)
	if err := container.Provide(func(cacheCfg *config.CacheConfig) domain.ResponseCache {
		if !cacheCfg.Enabled {
			return nil
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     cacheCfg.Addr,
			Password: cacheCfg.Password,
			DB:       cacheCfg.DB,
		})
		return rediscache.NewResponseCache(client)
	}); err != nil {
		log.Fatalf("Failed to provide cache: %v", err)
	}

	// Usage accounting
	if err := container.Provide(domain.NewAccountant); err != nil {
		log.Fatalf("Failed to provide accountant: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewGenerationService); err != nil {
		log.Fatalf("Failed to provide generation service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
