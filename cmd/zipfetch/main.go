//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

// zipfetch downloads a ZIP archive and extracts it into a directory.
//
//	zipfetch [flags] <source-url> <destination>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"go.bug.st/zipfetcher"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("zipfetch", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: zipfetch [flags] <source-url> <destination>")
		flags.PrintDefaults()
	}
	configFile := flags.String("config", "", "YAML configuration file")
	inactivity := flags.Duration("inactivity-timeout", 0, "abort when no data is received for this long (0 disables)")
	timeout := flags.Duration("timeout", 0, "overall time limit (0 disables)")
	logLevel := flags.String("log-level", "", "log level: debug, info, warn, error")
	quiet := flags.Bool("quiet", false, "do not print progress")
	headers := headerFlags{}
	flags.Var(headers, "header", "extra HTTP header key=value (repeatable)")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() != 2 {
		flags.Usage()
		return 2
	}

	cfg := &fileConfig{}
	if *configFile != "" {
		var err error
		if cfg, err = loadConfigFile(*configFile); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "inactivity-timeout":
			cfg.InactivityTimeout = *inactivity
		case "timeout":
			cfg.Timeout = *timeout
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	for k, v := range headers {
		cfg.Headers[k] = v
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	transport := zipfetcher.NewHTTPTransport(zipfetcher.Config{
		ExtraHeaders:      cfg.Headers,
		InactivityTimeout: cfg.InactivityTimeout,
		PollInterval:      cfg.PollInterval,
	})
	fetcher := zipfetcher.New(
		zipfetcher.WithTransport(transport),
		zipfetcher.WithLogger(logger),
		zipfetcher.WithSpoolDir(cfg.SpoolDir),
	)

	start := time.Now()
	job, err := fetcher.Fetch(ctx, flags.Arg(0), flags.Arg(1), zipfetcher.Callbacks{
		OnProgress: func(progress float64, isCompleted bool) {
			if *quiet {
				return
			}
			fmt.Fprintf(stderr, "\rdownloading %5.1f%%", progress*100)
			if isCompleted {
				fmt.Fprintln(stderr)
			}
		},
		OnComplete: func(destination string) {
			if !*quiet {
				fmt.Fprintf(stderr, "extracted into %s in %s\n", destination, time.Since(start).Round(time.Millisecond))
			}
		},
	})
	if err != nil {
		return 1
	}
	if err := job.Wait(); err != nil {
		return 1
	}
	return 0
}
