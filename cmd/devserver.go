package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/devserver"
	"github.com/abhisek/examquest/internal/logger"
)

var devServerCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Serve the practice backend locally from the built-in question bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.DevServer.Addr = addr
		}

		cfg.Log.Console = true
		log, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := devserver.New(devserver.Options{
			Addr:     cfg.DevServer.Addr,
			Secret:   cfg.DevServer.Secret,
			Backend:  backend.NewFake(backend.FakeOptions{}),
			Logger:   log,
			Registry: prometheus.NewRegistry(),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Serving on %s (point EXAMQUEST_API_URL at http://%s)\n", cfg.DevServer.Addr, cfg.DevServer.Addr)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	devServerCmd.Flags().String("addr", "", "Listen address (default from config)")
}
