// Package main is a command-line client that sends one prompt through the
// provider fallback chain without running the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"infergate/config"
	"infergate/internal/app"
	"infergate/internal/cli"
	"infergate/internal/core"
	"infergate/internal/gateway"
	"infergate/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	chain       string
	model       string
	system      string
	maxTokens   int
	temperature float64
	timeout     float64
	listModels  bool
	provider    string
	status      bool
	set         map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{set: map[string]bool{}}
	fs := flag.NewFlagSet("infer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: infer [flags] prompt...")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.chain, "chain", "", "comma-separated fallback chain (default from config)")
	fs.StringVar(&opts.model, "model", "", "model override for every provider in the chain")
	fs.StringVar(&opts.system, "system", "", "system message sent before the prompt")
	fs.IntVar(&opts.maxTokens, "max-tokens", 0, "maximum tokens to generate")
	fs.Float64Var(&opts.temperature, "temperature", 0, "sampling temperature (0 to 2)")
	fs.Float64Var(&opts.timeout, "timeout", 0, "per-provider timeout in seconds")
	fs.BoolVar(&opts.listModels, "list-models", false, "list models available from a local provider")
	fs.StringVar(&opts.provider, "provider", "ollama", "provider queried by -list-models")
	fs.BoolVar(&opts.status, "status", false, "show which providers are configured")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, fs.Args(), nil
}

// callOptions converts the flags the user actually passed into request
// options; everything else falls through to configured defaults.
func (o *options) callOptions() (core.Options, error) {
	out := core.Options{Model: o.model}
	if o.set["max-tokens"] {
		if o.maxTokens < 1 {
			return out, errors.New("-max-tokens must be at least 1")
		}
		n := o.maxTokens
		out.MaxTokens = &n
	}
	if o.set["temperature"] {
		if o.temperature < 0 || o.temperature > 2 {
			return out, errors.New("-temperature must be between 0 and 2")
		}
		t := o.temperature
		out.Temperature = &t
	}
	if o.set["timeout"] {
		if o.timeout <= 0 {
			return out, errors.New("-timeout must be positive")
		}
		out.Timeout = time.Duration(o.timeout * float64(time.Second))
	}
	return out, nil
}

func (o *options) prompt(args []string) core.Prompt {
	text := cli.JoinPrompt(args)
	if o.system == "" {
		return core.TextPrompt(text)
	}
	return core.MessagesPrompt([]core.Message{
		{Role: core.RoleSystem, Content: o.system},
		{Role: core.RoleUser, Content: text},
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cli.ExitSuccess
		}
		return cli.ExitConfig
	}

	result, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return cli.ExitConfig
	}
	cfg := result.Config

	logCfg := cfg.Logging
	if logCfg.Level == "" {
		logCfg.Level = "warn"
	}
	slog.SetDefault(slog.New(logging.NewHandler(logCfg, stderr)))

	gw, err := app.BuildGateway(cfg, app.DefaultFactory(), app.GatewayOptions{})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return cli.ExitConfig
	}

	switch {
	case opts.status:
		cli.RenderStatus(stdout, gw.DefaultChain(), gw.Registry().Statuses())
		return cli.ExitSuccess
	case opts.listModels:
		return listModels(ctx, gw, opts.provider, stdout, stderr)
	}

	callOpts, err := opts.callOptions()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return cli.ExitConfig
	}
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "usage: infer [flags] prompt...")
		return cli.ExitConfig
	}

	chain := gw.DefaultChain()
	if opts.chain != "" {
		chain = core.ParseChain(opts.chain)
	}

	res := gw.Complete(ctx, opts.prompt(rest), callOpts, chain)
	cli.RenderResult(stdout, stderr, res)
	return cli.ExitCode(res)
}

func listModels(ctx context.Context, gw *gateway.Client, provider string, stdout, stderr io.Writer) int {
	models, err := gw.ListLocalModels(ctx, provider)
	if err != nil {
		fmt.Fprintln(stderr, err)
		var gwErr *core.GatewayError
		if errors.As(err, &gwErr) && gwErr.HTTPStatusCode() < 500 {
			return cli.ExitConfig
		}
		return cli.ExitExhausted
	}
	cli.RenderModels(stdout, provider, models)
	return cli.ExitSuccess
}
