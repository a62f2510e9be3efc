// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the document word completion server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

wordlist suggests completions from the words already present in the
documents an editor has open. Each open document gets its own Patricia trie;
a completion request reads the partial word left of the cursor and merges
the prefix matches of every trie, dropping duplicates.

# Usage

Start the server:

	wordlist

Preload files and enable debug logging:

	wordlist -d notes.md todo.txt

Run in CLI mode for interactive testing against a few files:

	wordlist -c -limit 10 README.md

# Configuration

Runtime configuration is read from a TOML (or YAML) file:

	[index]
	whitespace_splitter = '[^\p{L}\p{N}_]'
	show_current_document = true
	match_case = false
	min_word_length = 2

	[server]
	max_limit = 64
	default_limit = 24
	query_timeout_ms = 250

The default config file is created automatically if it doesn't exist.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. See package
server for the message shapes.

# Command Line Flags

	-config string
	    Path to a config file (default [UserConfigDir]/wordlist/config.toml)
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of suggestions to print in CLI mode
	-version
	    Show current version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bastiangx/wordlist/internal/cli"
	"github.com/bastiangx/wordlist/internal/logger"
	"github.com/bastiangx/wordlist/internal/metrics"
	"github.com/bastiangx/wordlist/internal/utils"
	"github.com/bastiangx/wordlist/pkg/completion"
	"github.com/bastiangx/wordlist/pkg/config"
	"github.com/bastiangx/wordlist/pkg/registry"
	"github.com/bastiangx/wordlist/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

const (
	Version = "0.3.0-beta"
	AppName = "wordlist"
	gh      = "https://github.com/bastiangx/wordlist"
)

// main wires config, the registry, the engine and either the IPC server or the CLI.
// main() does not implement logic for them and only manages the flow.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to a TOML or YAML config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of suggestions to print in CLI mode")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.SetDebug(*debugMode)

	appConfig, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	m := metrics.New()
	reg, err := registry.New(appConfig.Index, registry.WithMetrics(m))
	if err != nil {
		log.Fatalf("Failed to init word index: %v", err)
	}
	defer reg.Dispose()

	engine := completion.New(reg, appConfig.Index,
		completion.WithMetrics(m),
		completion.WithMaxPrefix(appConfig.Server.MaxPrefix))

	if err := preload(ctx, reg, flag.Args(), appConfig.Index.MaxDocumentBytes); err != nil {
		log.Fatalf("Failed to index files: %v", err)
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(reg, engine, *limit, os.Stdout)
		if err := inputHandler.Start(ctx, os.Stdin); err != nil && ctx.Err() == nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(reg, engine, appConfig, m, os.Stdin, os.Stdout)
	showStartupInfo(reg.Len())

	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// preload indexes files named on the command line. Unreadable files are skipped.
func preload(ctx context.Context, reg *registry.Registry, paths []string, maxBytes int) error {
	if len(paths) == 0 {
		return nil
	}
	uris := make([]protocol.DocumentURI, 0, len(paths))
	texts := make([]string, 0, len(paths))
	for _, path := range paths {
		text, err := utils.ReadTextFile(path, int64(maxBytes))
		if err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			continue
		}
		uris = append(uris, fileURI(path))
		texts = append(texts, text)
	}
	return reg.Seed(ctx, uris, texts)
}

// fileURI turns a command line path into the document URI an editor would send.
func fileURI(path string) protocol.DocumentURI {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return protocol.DocumentURI(uri.File(path))
}

func printVersion() {
	versionLogger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	versionLogger.SetStyles(styles)

	versionLogger.Print("")
	versionLogger.Print("[ wordlist ] Completes words from your open documents")
	versionLogger.Print("", "version", Version)
	versionLogger.Print("")
	versionLogger.Print("use -h or --help to see available options")
	versionLogger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(documents int) {
	startup := logger.NewWithConfig(AppName, log.InfoLevel, false, false, log.TextFormatter)
	startup.Infof("Version: %s", Version)
	startup.Infof("Process ID: [ %d ]", os.Getpid())
	startup.Infof("preloaded documents: %d", documents)
	startup.Info("status: ready")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")
}
