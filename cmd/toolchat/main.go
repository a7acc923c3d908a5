// toolchat serves a tool-augmented chat API over a configured model
// provider.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/effective-security/toolchat/callbacks"
	"github.com/effective-security/toolchat/chat"
	"github.com/effective-security/toolchat/httpserver"
	"github.com/effective-security/toolchat/llmfactory"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/echo"
	"github.com/effective-security/toolchat/tools/websearch"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "cmd")

func main() {
	cfgFile := flag.String("cfg", "toolchat.yaml", "provider config file")
	toolsFile := flag.String("tools", "", "tool declarations file, defaults to builtin tools")
	listen := flag.String("listen", ":8080", "listen address")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if *debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.INFO)
	}

	if err := run(*cfgFile, *toolsFile, *listen); err != nil {
		fmt.Fprintf(os.Stderr, "toolchat: %s\n", err.Error())
		os.Exit(1)
	}
}

func run(cfgFile, toolsFile, listen string) error {
	gw, cfg, err := llmfactory.Load(cfgFile)
	if err != nil {
		return err
	}

	registry, err := loadRegistry(toolsFile)
	if err != nil {
		return err
	}
	logger.KV(xlog.INFO, "status", "tools_loaded", "tools", registry.Names())

	opts := []chat.Option{
		chat.WithSystemPrompt(cfg.SystemPrompt),
		chat.WithCallback(callbacks.NewPackageLogger(logger)),
	}
	if cfg.ToolTimeout != "" {
		timeout, err := time.ParseDuration(cfg.ToolTimeout)
		if err != nil {
			return err
		}
		opts = append(opts, chat.WithToolTimeout(timeout))
	}
	orc := chat.New(gw, registry, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return httpserver.New(orc).ListenAndServe(ctx, listen)
}

// loadRegistry binds the declared tools, or the builtin declarations
// when no file is given. Binding failures are fatal: a chat must never
// start with tools the model can request but the server cannot run.
func loadRegistry(toolsFile string) (*tools.Registry, error) {
	impls := []tools.ITool{
		echo.New(),
	}
	if search, err := websearch.New(); err == nil {
		impls = append(impls, search)
	} else {
		logger.KV(xlog.WARNING, "status", "websearch_disabled", "reason", err.Error())
	}

	var cfg *tools.Config
	if toolsFile != "" {
		var err error
		cfg, err = tools.LoadConfig(toolsFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = builtinConfig(impls)
	}
	logger.KV(xlog.DEBUG, "status", "tool_implementations", "digest", tools.GetDescriptions(impls...))
	return tools.LoadRegistry(cfg, impls...)
}

func builtinConfig(impls []tools.ITool) *tools.Config {
	cfg := &tools.Config{}
	for _, impl := range impls {
		switch impl.Name() {
		case echo.ToolName:
			cfg.Tools = append(cfg.Tools, echo.Declaration())
		case websearch.ToolName:
			cfg.Tools = append(cfg.Tools, websearch.Declaration())
		}
	}
	return cfg
}
