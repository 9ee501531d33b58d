// Command mock-agent runs a scripted A2A outline or slides agent for local development
// of the relay.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deckforge/relay/clients/a2aClient/a2atest"
	"github.com/deckforge/relay/server/transport"
	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	loggerConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	logger, _ := loggerConfig.Build()
	defer logger.Sync()

	kind := flag.String("kind", string(config.AgentOutline), "Agent to simulate: outline or slides")
	listenAddr := flag.String("listen", "", "Address and port to listen on (default :10001 for outline, :10011 for slides)")
	publicURL := flag.String("url", "", "URL advertised in the agent card (default derived from --listen)")
	stepDelay := flag.Duration("step-delay", 300*time.Millisecond, "Delay between streamed events")
	flag.Parse()

	s := &scenario{stepDelay: *stepDelay, logger: logger}
	var handler a2atest.HandlerFunc
	defaultAddr := ""
	switch config.AgentKind(*kind) {
	case config.AgentOutline:
		handler, defaultAddr = s.outline, ":10001"
	case config.AgentSlides:
		handler, defaultAddr = s.slides, ":10011"
	default:
		logger.Fatal("Unknown agent kind", zap.String("kind", *kind))
	}
	if *listenAddr == "" {
		*listenAddr = defaultAddr
	}

	agent := a2atest.NewAgent("Mock "+*kind+" agent", handler, logger)
	agent.Card.Description = "Scripted " + *kind + " agent. Prompts containing error_test or hang_test trigger failures."
	agent.Card.URL = *publicURL
	if agent.Card.URL == "" {
		agent.Card.URL = advertisedURL(*listenAddr)
	}

	cfg := config.NewInternalConfig()
	cfg.SetListenAddr(*listenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, errChan, err := transport.StartHTTPServer(ctx, logger, cfg, agent, "")
	if err != nil {
		logger.Fatal("Failed to start mock agent", zap.Error(err))
	}
	logger.Info("Mock agent started", zap.String("kind", *kind), zap.String("url", agent.Card.URL))

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			logger.Error("Listener failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	transport.ShutdownHTTPServer(shutdownCtx, logger, srv)
}

func advertisedURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + listenAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
