// Command chat is a terminal client for the portfolio assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"portfolio/internal/chat"
	"portfolio/internal/config"
	"portfolio/internal/logging"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("PORTFOLIO_CONFIG"), "path to config.json")
	endpoint := flag.String("endpoint", "", "chat server base URL (overrides config)")
	debug := flag.Bool("debug", false, "log exchange failures to stderr")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			os.Exit(1)
		}
		cfg = loaded
	}
	if *endpoint != "" {
		cfg.Chat.Endpoint = *endpoint
	}

	logger := logging.New(os.Stderr, *debug)
	if !*debug {
		// failed exchanges are already shown inline
		logger = logger.Level(zerolog.ErrorLevel)
	}

	client := &http.Client{Timeout: time.Duration(cfg.Chat.TimeoutSeconds) * time.Second}
	render := newRenderer(os.Stdout, cfg.Chat.Fallback)
	ctrl := chat.NewController(
		chat.NewHTTPTransport(cfg.Chat.Endpoint, client),
		chat.WithGreeting(cfg.Chat.Greeting),
		chat.WithFallback(cfg.Chat.Fallback),
		chat.WithLogger(logger),
		chat.WithObserver(render.observe),
	)
	defer ctrl.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println(dimStyle.Render("connected to " + cfg.Chat.Endpoint + " (/help for commands)"))
	for _, msg := range ctrl.Snapshot() {
		printMessage(os.Stdout, msg)
	}

	for {
		input, err := line.Prompt(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case "/quit", "/exit":
			return
		case "/help":
			fmt.Println(dimStyle.Render(helpText))
			continue
		case "/history":
			printHistory(os.Stdout, ctrl.History())
			continue
		case "/transcript":
			for _, msg := range ctrl.Snapshot() {
				printMessage(os.Stdout, msg)
			}
			continue
		}

		// Ctrl+C while streaming abandons the reply
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = ctrl.Submit(ctx, input)
		stop()
		if err != nil && !errors.Is(err, chat.ErrEmptyInput) {
			fmt.Println(errorStyle.Render(err.Error()))
			if errors.Is(err, chat.ErrClosed) {
				return
			}
		}
	}
}
