package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/yebrai/skillswap/internal/app"
	"github.com/yebrai/skillswap/internal/config"
	"github.com/yebrai/skillswap/internal/logger"
	"github.com/yebrai/skillswap/internal/seed"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the config")
	seedPath := flag.String("seed", "", "YAML file of demo users to create at startup")
	flag.Parse()

	if err := run(*configPath, *envFile, *seedPath); err != nil {
		fmt.Fprintln(os.Stderr, "skillswap-api:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, seedPath string) error {
	cfg, err := config.Load(envFile, configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logger)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if seedPath != "" {
		f, err := seed.LoadFile(seedPath)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, a.Users, f, log); err != nil {
			return err
		}
	}

	log.Info("starting skillswap api", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
	return a.Run(ctx)
}
