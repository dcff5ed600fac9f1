package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// version is set at build time via ldflags.
var version = "dev"

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"staticblog.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output  string `short:"o" help:"Output directory (overrides config)"`
		Offline bool   `help:"Skip view-count fetches; every page reports 0 views"`
		Source  string `help:"Where posts are read from: files or db" enum:"files,db" default:"files"`
		DB      string `help:"SQLite post store path (overrides config database_path)"`
		Import  bool   `help:"Replace the database posts with the content directory before building"`
	} `cmd:"" help:"Generate the static site"`

	Serve struct {
		Addr  string `help:"Listen address (overrides config)"`
		Watch bool   `short:"w" help:"Rebuild when content or static files change"`
	} `cmd:"" help:"Serve the site, the view-count API and the admin dashboard"`

	List struct{} `cmd:"" help:"List posts with their reading time"`

	Post struct {
		Title string   `arg:"" help:"Post title"`
		Slug  string   `help:"Slug (derived from the title when empty)"`
		Tags  []string `help:"Comma-separated tags"`
		Draft bool     `help:"Mark the post as a draft"`
	} `cmd:"" help:"Create a new post in the content directory"`

	New struct {
		Name string `arg:"" help:"Directory of the new site"`
	} `cmd:"" help:"Create a new site"`

	Version struct{} `cmd:"" help:"Print the version"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("staticblog"),
		kong.Description("Static blog generator with build-time view counts."),
	)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch kctx.Command() {
	case "build":
		err = runBuild(ctx)
	case "serve":
		err = runServe(ctx)
	case "list":
		err = runList(ctx)
	case "post <title>":
		err = runPost()
	case "new <name>":
		err = runNew(CLI.New.Name)
	case "version":
		fmt.Printf("staticblog %s\n", version)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error(kctx.Command()+" failed", "error", err)
		os.Exit(1)
	}
}
