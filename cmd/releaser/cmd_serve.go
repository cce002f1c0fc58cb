package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/human-glitch/github-releaser/internal/webhook"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	servePort        int
	serveStatsPeriod time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Reformat release notes when GitHub announces a new release",
	Long: `serve listens for GitHub webhooks on /hook. Each published release of the
configured repository has its body regrouped by ticket. /health reports liveness.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
	serveCmd.Flags().DurationVar(&serveStatsPeriod, "stats-interval", 10*time.Minute, "How often to log GitHub API usage, 0 disables")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if cfg.Server.WebhookSecret == "" {
		log.Warnf("WEBHOOK_SECRET is not set, webhook signatures will not be verified")
	}

	// 服务进程不受 --timeout 限制
	ctx, stop := signalContext(cmd.Context(), 0)
	defer stop()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveStatsPeriod > 0 {
		a.clients.RateLimitMonitor().StartPeriodicLogging(ctx, serveStatsPeriod)
	}

	handler := webhook.NewHandler(cfg, a.releaser)
	mux := http.NewServeMux()
	mux.HandleFunc("/hook", handler.HandleWebhook)
	mux.HandleFunc("/health", handler.HandleHealth)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting webhook server on %s for %s", server.Addr, a.client.Repository())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webhook server failed: %w", err)
		}
	case <-ctx.Done():
		log.Infof("Shutting down webhook server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Server shutdown: %v", err)
	}
	// 等待进行中的发布说明整理结束
	handler.Wait()
	log.Infof("Webhook server stopped")
	return nil
}
