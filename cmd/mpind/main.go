package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/weka/mpind/internal/cfg"
	"github.com/weka/mpind/internal/ctrl"
	"github.com/weka/mpind/internal/pinner"
	"github.com/weka/mpind/pkg/logger"
)

const (
	serviceName = "mpind"
	version     = "0.1.0"
)

var commitSHA string

func main() {
	socketPath := flag.String("socket", "", "control socket path override")
	flag.Parse()

	config, err := cfg.Parse()
	if err != nil {
		log.Fatalf("Failed to parse configuration: %v", err)
	}

	if *socketPath != "" {
		config.SocketPath = *socketPath
	}

	if !run(config) {
		os.Exit(1)
	}
}

func run(config cfg.Config) (success bool) {
	success = true

	// Check if the daemon crashed and restarted
	info, err := os.Stat(config.LockPath)
	if err == nil {
		log.Printf("mpind was already started at %s", info.ModTime())
	}

	if err := os.MkdirAll(filepath.Dir(config.LockPath), 0o700); err != nil {
		log.Fatalf("Failed to create lock file dir %s: %v", config.LockPath, err)
	}

	f, err := os.Create(config.LockPath)
	if err != nil {
		log.Fatalf("Failed to create lock file %s: %v", config.LockPath, err)
	}
	defer func() {
		fileErr := f.Close()
		if fileErr != nil {
			log.Printf("Failed to close lock file %s: %v", config.LockPath, fileErr)
		}

		// Remove the lock file on graceful shutdown
		if success == true {
			if fileErr = os.Remove(config.LockPath); fileErr != nil {
				log.Printf("Failed to remove lock file %s: %v", config.LockPath, fileErr)
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig, sigCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	l, err := logger.New(logger.Config{
		ServiceName: serviceName,
		IsDebug:     config.Debug,
		InitialFields: []zap.Field{
			zap.String("version", version),
			zap.String("commit", commitSHA),
		},
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Sync()
	zap.ReplaceGlobals(l)

	if config.RaiseMemlockRlimit {
		if err := pinner.RaiseMemlockLimit(); err != nil {
			l.Warn("failed to raise memlock rlimit, pinning may hit the default limit", zap.Error(err))
		}
	}

	backend := pinner.Detect(config.Pretend)
	l.Info("selected pinning backend", zap.String("backend", backend.Name()))

	if err := os.MkdirAll(filepath.Dir(config.SocketPath), 0o700); err != nil {
		l.Error("failed to create socket dir", zap.Error(err))

		return false
	}

	if err := os.Remove(config.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.Error("failed to remove stale socket", zap.String("path", config.SocketPath), zap.Error(err))

		return false
	}

	ln, err := net.Listen("unix", config.SocketPath)
	if err != nil {
		l.Error("failed to listen on control socket", zap.String("path", config.SocketPath), zap.Error(err))

		return false
	}
	defer os.Remove(config.SocketPath)

	l.Info("control socket ready", zap.String("path", config.SocketPath))

	server := ctrl.NewServer(backend, pinner.HostPageSize(), l)

	if err := server.Serve(sig, ln); err != nil {
		l.Error("control server exited with error", zap.Error(err))
		success = false
	}

	l.Info("shutdown complete")

	return success
}
