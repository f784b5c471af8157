package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kapitanov/chip8emu/internal/emulator"
	"github.com/kapitanov/chip8emu/internal/hal"
	"github.com/kapitanov/chip8emu/internal/term"
	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/spf13/cobra"
)

const (
	frontendSDL      = "sdl"
	frontendTerminal = "term"
)

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	defaults := emulator.DefaultConfig()
	verbose := cmd.Flags().BoolP("verbose", "v", false, "enable verbose logging")
	frontend := cmd.Flags().StringP("frontend", "f", frontendSDL, "frontend to use: sdl or term")
	ips := cmd.Flags().Int("ips", defaults.InstructionsPerSecond, "instructions executed per second")
	timerHz := cmd.Flags().Int("timer-hz", defaults.TimerHz, "timer and display refresh rate")
	keyHold := cmd.Flags().Duration("key-hold", term.DefaultKeyHold, "how long a key stays pressed in the terminal frontend")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if *verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))

		cfg := emulator.Config{
			InstructionsPerSecond: *ips,
			TimerHz:               *timerHz,
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		path := args[0]
		bs, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}
		if len(bs) > vm.MaxProgramSize {
			return fmt.Errorf("unable to load file %q: %w", path, vm.ErrProgramTooLarge)
		}

		h, shutdown, err := newFrontend(*frontend, *keyHold)
		if err != nil {
			return fmt.Errorf("unable to initialize %s frontend: %w", *frontend, err)
		}
		defer shutdown()

		emu, err := emulator.New(vm.New(), h, bs, cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return emu.Run(ctx)
	}

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func newFrontend(name string, keyHold time.Duration) (emulator.HAL, func(), error) {
	switch name {
	case frontendSDL:
		h, err := hal.New()
		if err != nil {
			return nil, nil, err
		}
		return h, h.Shutdown, nil

	case frontendTerminal:
		t, err := term.New(keyHold)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Shutdown, nil

	default:
		return nil, nil, fmt.Errorf("unknown frontend %q", name)
	}
}
