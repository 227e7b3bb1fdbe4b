package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github/itish2003/vaultchat/controller"
	"github/itish2003/vaultchat/realtime"
	"github/itish2003/vaultchat/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server (web UI, HTTP API and realtime channel)",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.DataPath, "data-path", cfg.DataPath, "directory for the query history store (empty disables it)")
	flags.StringVar(&cfg.ChromaURL, "chroma-url", cfg.ChromaURL, "chroma server for semantic search (empty uses keyword search)")
	flags.StringVar(&cfg.OllamaHost, "ollama-host", cfg.OllamaHost, "ollama server URL")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	ollamaService, err := services.NewOllamaService(cfg.OllamaHost, httpClient, cfg.EmbedModel)
	if err != nil {
		return err
	}
	geminiService, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return err
	}
	services.ConfigurePDFLicense(cfg.UnidocKey)

	history, err := services.OpenHistoryStore(cfg.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("SERVER: open history store failed; history disabled")
		history = nil
	}
	defer func() {
		if err := history.Close(); err != nil {
			log.Warn().Err(err).Msg("SERVER: history store close error")
		}
	}()

	opts := services.Options{
		Ollama:  ollamaService,
		History: history,
	}
	if geminiService != nil {
		opts.Gemini = geminiService
		log.Info().Msg("SERVER: Gemini models enabled")
	}
	if cfg.ChromaURL != "" {
		chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.ChromaURL))
		if err != nil {
			return err
		}
		defer func() {
			if err := chromaClient.Close(); err != nil {
				log.Warn().Err(err).Msg("SERVER: failed to close chroma client")
			}
		}()
		opts.Index = services.NewChromaIndexer(chromaClient, ollamaService)
		log.Info().Str("url", cfg.ChromaURL).Msg("SERVER: semantic search enabled")
	}

	ragService := services.NewRAGService(opts)
	ragController := controller.NewRAGController(ragService)
	ws := realtime.NewServer(ragController.BindSocket)
	router, err := controller.NewRouter(ragController, ws)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("SERVER: serving on http://localhost%s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ws.CloseAll()
		ragController.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("SERVER: shutdown complete")
	return nil
}
