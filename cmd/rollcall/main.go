package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/abrezinsky/rollcall/internal/app"
	"github.com/abrezinsky/rollcall/internal/auth"
	"github.com/abrezinsky/rollcall/internal/browser"
	"github.com/abrezinsky/rollcall/internal/config"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/web"
)

var (
	version = "dev"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, config.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "rollcall: %v\n", err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Printf("rollcall %s\n", version)
		os.Exit(0)
	}

	showStartupAnimation(os.Stdout, cfg.NoAnimate)

	// Setup organizer authentication
	password := cfg.AdminPassword
	if password == "" {
		password = auth.GeneratePassword()
	}
	adminAuth := auth.New(password)

	appLog := logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel))

	a, err := app.New(*cfg, appLog, web.Templates(), web.Static(), adminAuth)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}

	appLog.Info("Admin password", "password", password)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run(cfg.Addr())
	}()

	// Wait a moment for the base URL to resolve
	time.Sleep(100 * time.Millisecond)

	quit := make(chan struct{}, 1)
	stdin := int(os.Stdin.Fd())
	if !cfg.NoKeyboard && term.IsTerminal(stdin) {
		printKeyboardHelp(os.Stdout)
		c := &console{
			log:       appLog,
			out:       os.Stdout,
			dashboard: func() string { return browser.DashboardURL(a.BaseURL()) },
			open:      browser.Open,
		}
		go c.listen(stdin, os.Stdin, quit)
	} else if cfg.NoKeyboard {
		fmt.Printf("\n%sKeyboard shortcuts disabled (use -nokeyboard=false to enable)%s\n\n", yellow, reset)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		a.Close()
		if err != nil {
			log.Fatal(err)
		}
	case <-quit:
		a.Close()
	case <-signals:
		fmt.Printf("%sShutting down server...%s\n", yellow, reset)
		a.Close()
	}
}
