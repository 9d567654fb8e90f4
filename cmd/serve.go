package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring engine over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", server.DefaultAddr, "listen address")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, false)
	if err != nil {
		log.Fatal(err)
	}
	defer rt.Close()

	rt.logger.Info("starting the ats-scorer server",
		zap.String("version", version),
		zap.String("dictionary_version", rt.dict.Version()),
	)

	var checks []server.HealthCheck
	if rt.cache != nil {
		checks = append(checks, server.HealthCheck{Name: "cache", Check: rt.cache.Ping})
	}

	srv := server.New(rt.engine, rt.dict, rt.elaborator, rt.config.Server, rt.logger, checks...)
	if err := srv.Run(ctx); err != nil {
		rt.logger.Fatal("http server", zap.Error(err))
	}
}
