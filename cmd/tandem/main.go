package main

import (
	"io"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/avolkov/tandem/internal/client/auth"
	"github.com/avolkov/tandem/internal/client/config"
	"github.com/avolkov/tandem/internal/client/gateway"
	"github.com/avolkov/tandem/internal/client/route"
	"github.com/avolkov/tandem/internal/client/services"
	"github.com/avolkov/tandem/internal/client/ui"
	"github.com/avolkov/tandem/internal/logging"
)

func main() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Fatal("tandem is an interactive client and needs a terminal")
	}

	cfg := config.LoadConfig()

	logger, cleanup, err := newLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer cleanup()

	gw, err := gateway.NewHTTPGateway(gateway.Options{
		BaseURL:     cfg.GatewayURL,
		APIKey:      cfg.APIKey,
		SessionFile: cfg.SessionFile,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}
	defer gw.Close()

	store := auth.NewStore()
	ctrl := auth.NewController(gw, store, logger)
	defer ctrl.Close()

	app, err := ui.NewApp(
		ctrl,
		auth.NewGuard(),
		&route.Stash{},
		services.NewProfileService(gw),
		services.NewOnboardingService(gw, cfg.ProbeTimeout, logger),
		cfg.InitTimeout,
		logger,
	)
	if err != nil {
		log.Fatalf("ui: %v", err)
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("%v", err)
	}
}

// newLogger builds the structured logger. With no log file configured,
// logs are discarded: anything written to stderr would tear up the TUI.
func newLogger(path string) (logging.Logger, func(), error) {
	if path == "" {
		h := slog.NewTextHandler(io.Discard, nil)
		return logging.NewSlogLogger(slog.New(h)), func() {}, nil
	}

	f, err := tea.LogToFile(path, "tandem")
	if err != nil {
		return nil, nil, err
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return logging.NewSlogLogger(slog.New(h)), func() { _ = f.Close() }, nil
}
