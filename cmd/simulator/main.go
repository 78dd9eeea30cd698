package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var (
	serverURL = flag.String("server", "ws://localhost:8080", "Voice service base WebSocket URL")
	script    = flag.String("script", "", "File with one utterance per line; stdin when empty")
	delay     = flag.Duration("delay", 1500*time.Millisecond, "Pause between scripted utterances")
	watch     = flag.Bool("panel", true, "Print commands and status pushed to the panel feed")
	token     = flag.String("token", "", "Bearer token for servers with security.jwt_secret set")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := NewSimulator(&SimulatorConfig{
		ServerURL: *serverURL,
		Delay:     *delay,
		Panel:     *watch,
		Token:     *token,
	}, os.Stdout, logger)

	if err := sim.Connect(ctx); err != nil {
		logger.Fatal("Failed to connect to server", zap.Error(err))
	}
	defer sim.Close()

	input := os.Stdin
	scripted := *script != ""
	if scripted {
		f, err := os.Open(*script)
		if err != nil {
			logger.Fatal("Failed to open script", zap.String("path", *script), zap.Error(err))
		}
		defer f.Close()
		input = f
	} else {
		fmt.Println("Voice Speaker Simulator")
		fmt.Println("=======================")
		fmt.Println("Type what the speaker says, one utterance per line.")
		fmt.Println("Prefix a line with '~' to send it as an interim result.")
		fmt.Println("Ctrl+D or Ctrl+C to exit.")
		fmt.Println("")
	}

	if err := sim.Speak(ctx, input, scripted); err != nil && ctx.Err() == nil {
		logger.Fatal("Simulator stopped", zap.Error(err))
	}
}
