package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/config"
	"github.com/marmos91/kobject/pkg/kernel"
	"github.com/marmos91/kobject/pkg/metrics"
)

const usage = `kobjd - kernel object daemon

Usage:
  kobjd init  [-config path] [-force]   write a default configuration file
  kobjd start [-config path] [-no-shell] boot the kernel (default command)
`

func main() {
	args := os.Args[1:]
	cmd := "start"
	if len(args) > 0 && (args[0] == "init" || args[0] == "start" || args[0] == "help") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "init":
		runInit(args)
	case "help":
		fmt.Print(usage)
	default:
		os.Exit(runStart(args))
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to write (default: "+config.GetDefaultConfigPath()+")")
	force := fs.Bool("force", false, "Overwrite an existing file")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			log.Fatalf("Failed to initialize config: %v", err)
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration written to %s\n", path)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	noShell := fs.Bool("no-shell", false, "Do not read commands from stdin")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to set log output: %v", err)
	}

	m := config.InitializeMetrics(cfg)

	// Stores outlive the signal context so shutdown can still flush them
	k, err := kernel.Boot(context.Background(), cfg, m)
	if err != nil {
		logger.Error("Boot failed: %v", err)
		return 1
	}
	defer func() {
		if err := k.Shutdown(); err != nil {
			logger.Error("Shutdown error: %v", err)
		}
	}()

	if m.Enabled {
		if err := k.AddService(metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})); err != nil {
			logger.Error("Failed to add metrics service: %v", err)
			return 1
		}
	}

	if !*noShell {
		p, err := k.Init()
		if err != nil {
			logger.Error("Failed to start init process: %v", err)
			return 1
		}
		if err := k.AddService(kernel.NewShell(k, p, os.Stdin, os.Stdout)); err != nil {
			logger.Error("Failed to add shell service: %v", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("kobjd running. Press Ctrl+C to stop.")
	if err := k.Serve(ctx); err != nil {
		logger.Error("Kernel error: %v", err)
		return 1
	}
	return 0
}
