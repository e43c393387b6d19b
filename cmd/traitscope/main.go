// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command traitscope drives an analyzer session from the terminal.
//
// Usage:
//
//	traitscope run path/to/file.c
//	traitscope run -config traitscope.yaml -loops path/to/file.c
//	traitscope stat path/to/file.c
//
// run starts one analyzer session for the file, requests the function
// snapshot (plus loop trees with -loops), and prints decoded responses
// until the analyzer goes quiet or the process is interrupted. stat
// requests only the per-artifact counters.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/traitscope/config"
	"github.com/AleutianAI/traitscope/engine"
	"github.com/AleutianAI/traitscope/logging"
	"github.com/AleutianAI/traitscope/msg"
	"github.com/AleutianAI/traitscope/provider"
	"github.com/AleutianAI/traitscope/session"
	"github.com/AleutianAI/traitscope/telemetry"
)

var (
	configPath  string
	metricsAddr string
	withLoops   bool
	settleAfter time.Duration

	rootCmd = &cobra.Command{
		Use:   "traitscope",
		Short: "Client for a trait analysis server",
		Long: `TraitScope supervises a local source-analysis server process and
prints its decoded responses. One session per source file.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run [file]",
		Short: "Start a session and print analysis responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], withLoops)
		},
	}

	statCmd = &cobra.Command{
		Use:   "stat [file]",
		Short: "Print the per-file analysis counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return stat(cmd.Context(), args[0])
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address")
	rootCmd.PersistentFlags().DurationVar(&settleAfter, "settle", 2*time.Second, "exit after this long without responses")
	runCmd.Flags().BoolVar(&withLoops, "loops", false, "also request every function's loop tree")
	rootCmd.AddCommand(runCmd, statCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "traitscope:", err)
		os.Exit(1)
	}
}

// setup builds the shared config, logger, telemetry, and engine.
func setup(ctx context.Context) (*engine.Engine, *logging.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		LogDir:  cfg.LogDir,
		Service: "traitscope",
	})
	if err != nil {
		// Degraded to stderr-only; still usable.
		logger.Warn("file logging disabled", "error", err.Error())
	}

	tshutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		logger.Close()
		return nil, nil, nil, err
	}

	if metricsAddr != "" {
		if handler := telemetry.MetricsHandler(); handler != nil {
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			go func() {
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Warn("metrics endpoint failed", "error", err.Error())
				}
			}()
		}
	}

	eng := engine.New(cfg, logger.Slog())
	cleanup := func() {
		eng.StopAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = tshutdown(shutdownCtx)
		cancel()
		logger.Close()
	}
	return eng, logger, cleanup, nil
}

// registerProviders declares every renderer kind the CLI consumes.
func registerProviders(eng *engine.Engine) error {
	regs := []struct {
		kind    msg.Kind
		factory provider.Factory
	}{
		{msg.KindDiagnostic, provider.NewMainState},
		{msg.KindFunctionList, provider.NewFunctionListState},
		{msg.KindCalleeFuncList, provider.NewCalleeFuncState},
		{msg.KindAliasTree, provider.NewAliasTreeState},
		{msg.KindStatistic, provider.NewStatisticState},
		{msg.KindFileList, provider.NewFileListState},
	}
	for _, r := range regs {
		if err := eng.Register(r.kind, r.factory); err != nil {
			return err
		}
	}
	return nil
}

// run drives one session and prints the function snapshot as it settles.
func run(ctx context.Context, artifact string, loops bool) error {
	eng, _, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := registerProviders(eng); err != nil {
		return err
	}

	sess, err := eng.Start(ctx, artifact)
	if err != nil {
		return err
	}

	fns, err := activeFunctionState(sess)
	if err != nil {
		return err
	}

	if err := sess.Send(msg.FunctionListRequest{}); err != nil {
		return err
	}

	if err := waitSettled(ctx, sess); err != nil {
		return err
	}

	snapshot := fns.Functions()
	if snapshot == nil {
		return fmt.Errorf("no function list received")
	}
	for _, fn := range snapshot.Functions {
		fmt.Printf("%s:%d %s\n", fn.Loc.Path, fn.Loc.Line, fn.Name)
		if loops {
			if !fns.Actual(msg.LoopTreeRequest{FunctionID: fn.ID}) {
				if err := sess.Send(msg.LoopTreeRequest{FunctionID: fn.ID}); err != nil {
					return err
				}
			}
		}
	}
	if loops {
		if err := waitSettled(ctx, sess); err != nil {
			return err
		}
		for _, fn := range snapshot.Functions {
			for _, loop := range fns.LoopsOf(fn.ID) {
				fmt.Printf("  %s loop %s:%d level %d\n", loop.Type, loop.StartLoc.Path, loop.StartLoc.Line, loop.Level)
			}
		}
	}
	return nil
}

// stat requests and prints the per-artifact counters.
func stat(ctx context.Context, artifact string) error {
	eng, _, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := registerProviders(eng); err != nil {
		return err
	}

	sess, err := eng.Start(ctx, artifact)
	if err != nil {
		return err
	}

	st, err := sess.ProviderState(msg.KindStatistic)
	if err != nil {
		return err
	}
	stats := st.(*provider.StatisticState)
	stats.Activate()

	if err := sess.Send(msg.StatisticRequest{}); err != nil {
		return err
	}
	if err := waitSettled(ctx, sess); err != nil {
		return err
	}

	s := stats.Statistic()
	if s == nil {
		return fmt.Errorf("no statistics received")
	}
	fmt.Printf("functions: %d (user %d)\n", s.Functions, s.UserFunctions)
	fmt.Printf("loops: %d (parallel %d)\n", s.Loops, s.ParallelLoops)
	for trait, n := range s.Traits {
		fmt.Printf("trait %s: %d\n", trait, n)
	}
	return nil
}

// activeFunctionState attaches and activates the function list provider.
func activeFunctionState(sess *session.Session) (*provider.FunctionListState, error) {
	st, err := sess.ProviderState(msg.KindFunctionList)
	if err != nil {
		return nil, err
	}
	fns := st.(*provider.FunctionListState)
	fns.Activate()
	return fns, nil
}

// waitSettled blocks until the response log stops growing for the settle
// window, the session stops, or the context ends.
func waitSettled(ctx context.Context, sess *session.Session) error {
	last := sess.ResponseCount()
	quiet := time.Duration(0)
	const tick = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tick):
		}
		if sess.Stopped() {
			return session.ErrConnectionClosed
		}
		if n := sess.ResponseCount(); n != last {
			last = n
			quiet = 0
			continue
		}
		quiet += tick
		if quiet >= settleAfter && last > 0 {
			return nil
		}
	}
}
