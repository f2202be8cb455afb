package main

import (
	"crypto/tls"
	"net"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vh2proto/engine/h2"
	"github.com/vh2proto/engine/h2/facade"
	"github.com/vh2proto/engine/internal/h2config"
	"github.com/vh2proto/engine/internal/h2log"
)

func serveCommand() *cobra.Command {
	var configPath string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an example HTTP/2 server over the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &h2config.Config{Listen: addr}
			if configPath != "" {
				loaded, err := h2config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&addr, "addr", ":8443", "address to listen on")
	return cmd
}

func runServe(cfg *h2config.Config) error {
	log := h2log.New("h2demo")

	ln, err := listener(cfg)
	if err != nil {
		return err
	}
	logrus.WithField("addr", ln.Addr()).Info("h2demo: listening")

	handler := &facade.Handler{H: requestHandler, Logger: fasthttpLoggerAdapter{log}}

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serveConn(conn, cfg, handler, log)
	}
}

// listener builds the demo's net.Listener, wrapping it in TLS acquired
// via autocert when the config asks for it. This mirrors the teacher's
// examples/autocert/main.go bootstrap (Manager + HostWhitelist +
// DirCache); no HTTP-01 challenge handler is started, and there is no
// ALPN protocol negotiation: this draft is spoken over
// plain TCP or TLS via prior knowledge, not NPN/ALPN dispatch (a
// Non-goal, see SPEC_FULL.md §5).
func listener(cfg *h2config.Config) (net.Listener, error) {
	if !cfg.TLS.Enabled {
		return net.Listen("tcp", cfg.Listen)
	}

	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.TLS.Hosts...),
		Cache:      autocert.DirCache(cfg.TLS.CacheDir),
	}
	tlsConfig := &tls.Config{GetCertificate: m.GetCertificate}
	return tls.Listen("tcp", cfg.Listen, tlsConfig)
}

func serveConn(conn net.Conn, cfg *h2config.Config, handler *facade.Handler, log *h2log.Logger) {
	defer conn.Close()

	c := h2.NewConnection(h2.RoleServer, conn, cfg.Values(), log)
	if err := c.Handshake(); err != nil {
		logrus.WithError(err).Warn("h2demo: handshake failed")
		return
	}

	c.SetEvents(h2.Events{
		OnStream: func(s *h2.Stream) {
			h := *handler
			h.Conn = conn
			h.Attach(c, s)
		},
	})

	if err := c.Serve(); err != nil {
		logrus.WithError(err).Debug("h2demo: connection closed")
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(200)
	ctx.SetBodyString("Hello from h2demo!\n")
}

// fasthttpLoggerAdapter satisfies fasthttp.Logger with an *h2log.Logger.
type fasthttpLoggerAdapter struct{ l *h2log.Logger }

func (a fasthttpLoggerAdapter) Printf(format string, args ...interface{}) { a.l.Printf(format, args...) }
