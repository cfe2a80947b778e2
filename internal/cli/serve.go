package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and the notification dispatcher",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := openApp(ctx, appOptions{registry: reg, configLogLevel: true})
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	// Bring every live reminder in line with the current anchors and tiers.
	sweep, err := a.eng.Scheduler.RescheduleAll(ctx)
	if err != nil {
		logger.Error("startup reschedule", zap.Error(err))
	} else {
		logger.Info("startup reschedule",
			zap.Int("scheduled", sweep.Scheduled),
			zap.Int("skipped", sweep.Skipped),
			zap.Int("failures", len(sweep.Failures)),
		)
	}

	if a.cfg.Delivery.Enabled {
		d := notify.NewDispatcher(a.db, notify.LogSink(logger.Named("delivery")), clock.Real{},
			a.cfg.PollInterval(), logger.Named("dispatcher"), a.metrics)
		d.Start()
		defer d.Stop()
	}

	srv := server.New(a.db, a.eng, VersionString(), server.Options{
		Logger:   logger.Named("http"),
		Gatherer: reg,
	})
	addr := a.cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "cadence serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", a.db.Path)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
