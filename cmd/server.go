package cmd

import (
	"net/http"

	"github.com/brk3/habitd/internal/config"
	"github.com/brk3/habitd/internal/logger"
	"github.com/brk3/habitd/internal/server"
	"github.com/brk3/habitd/internal/storage/bolt"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func startServer() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.LogFormat == "json" {
		logger.InitJSON(cfg.SlogLevel())
	} else {
		logger.Init(cfg.SlogLevel())
	}

	store, err := bolt.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, store)
	if err != nil {
		return err
	}

	logger.Info("Starting server", "addr", cfg.ListenAddr, "db", cfg.DBPath,
		"auth_enabled", cfg.AuthEnabled)
	return http.ListenAndServe(cfg.ListenAddr, srv.Router())
}
