package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/vibin/jx3-item-bot/config"
	httpHandler "github.com/vibin/jx3-item-bot/internal/adapters/primary/http"
	"github.com/vibin/jx3-item-bot/internal/adapters/primary/onebot"
	"github.com/vibin/jx3-item-bot/internal/adapters/primary/whatsapp"
	"github.com/vibin/jx3-item-bot/internal/adapters/secondary/jx3box"
	"github.com/vibin/jx3-item-bot/internal/core/ports"
	"github.com/vibin/jx3-item-bot/internal/core/services"
	"github.com/vibin/jx3-item-bot/internal/logger"
	"github.com/vibin/jx3-item-bot/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debugMode {
		logLevel = slog.LevelDebug
	}
	log := logger.New(logLevel, os.Stdout)
	log.Info("Starting JX3 item bot")

	config.SetConfigPath(*configPath)
	if *configPath != "" {
		log.Info("Loading configuration", "path", *configPath)
	} else {
		log.Info("Using default configuration")
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	searchClient := jx3box.NewClient(&cfg.ItemSearch, log)
	itemService := services.NewItemService(searchClient, &cfg.ItemSearch, log)
	if err := itemService.Initialize(ctx); err != nil {
		log.Error("Failed to initialize item service", "error", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup

	var whatsappAdapter ports.WhatsAppPort
	if cfg.WhatsApp.Enabled {
		log.Info("Initializing WhatsApp adapter")
		wa, err := whatsapp.NewWhatsAppAdapter(itemService, cfg, log)
		if err != nil {
			log.Error("Failed to initialize WhatsApp adapter", "error", err)
			os.Exit(1)
		}
		whatsappAdapter = wa

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := wa.Start(ctx); err != nil {
				log.Error("WhatsApp adapter error", "error", err)
			}
		}()
	}

	var onebotAdapter *onebot.Adapter
	if cfg.OneBot.Enabled {
		log.Info("Initializing OneBot adapter")
		onebotAdapter = onebot.NewAdapter(itemService, cfg, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := onebotAdapter.Start(ctx); err != nil {
				log.Error("OneBot adapter error", "error", err)
			}
		}()
	}

	handler := httpHandler.NewHandler(itemService, cfg, whatsappAdapter, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if whatsappAdapter != nil {
		_ = whatsappAdapter.Disconnect()
	}
	if onebotAdapter != nil {
		_ = onebotAdapter.Stop()
	}
	wg.Wait()

	if err := itemService.Terminate(shutdownCtx); err != nil {
		log.Error("Failed to terminate item service", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", "error", err)
	}

	log.Info("Server exited")
}
