package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/maskedit/internal/logger"
	"github.com/example/maskedit/internal/server"
)

type serveCmd struct {
	*root
	fs       *flag.FlagSet
	addr     string
	origins  string
	maxBody  int64
	noDrafts bool
}

func (c *serveCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *serveCmd) Template() string {
	return "serve.txt"
}

func parseServeCmd(args []string, r *root) (*serveCmd, error) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	c := &serveCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.addr, "addr", "127.0.0.1:8080", "listen address")
	fs.StringVar(&c.origins, "cors", "", "comma separated extra CORS origins")
	fs.Int64Var(&c.maxBody, "max-body", server.DefaultMaxBody, "largest accepted request body in bytes")
	fs.BoolVar(&c.noDrafts, "no-drafts", false, "serve /inpaint only, without the /drafts API")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *serveCmd) options(ctx context.Context) ([]server.Option, error) {
	opts := []server.Option{
		server.WithLogger(logger.Log),
		server.WithMaxBody(c.maxBody),
	}
	for _, o := range strings.Split(c.origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, server.WithAllowedOrigins(o))
		}
	}
	if !c.noDrafts {
		store, err := c.openStore(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, server.WithStore(store))
	}
	return opts, nil
}

func (c *serveCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	opts, err := c.options(ctx)
	if err != nil {
		return err
	}
	return server.New(opts...).ListenAndServe(ctx, c.addr)
}
