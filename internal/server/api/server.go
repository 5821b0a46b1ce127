// Package api serves the padctl control protocol: one command per line,
// "<path> [payload]\n", answered by one JSON line.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/Alia5/padctl/controller"
)

// Server implements a small TCP API for driving a controller remotely.
type Server struct {
	ctrl   *controller.Controller
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	config ServerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new API server bound to a controller.
func New(ctrl *controller.Controller, addr string, config ServerConfig, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		ctrl:   ctrl,
		addr:   addr,
		logger: logger,
		router: NewRouter(),
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Router returns the router used by the API server so callers can register handlers.
func (a *Server) Router() *Router { return a.router }

// Controller returns the controller the server drives.
func (a *Server) Controller() *controller.Controller { return a.ctrl }

// Config returns the server configuration.
func (a *Server) Config() ServerConfig { return a.config }

// Addr returns the bound listen address once started.
func (a *Server) Addr() string {
	if a.ln != nil {
		return a.ln.Addr().String()
	}
	return a.addr
}

// Start listens on the configured address and serves incoming API commands.
func (a *Server) Start() error {
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.ln = ln
	a.logger.Info("API listening", "addr", ln.Addr().String())
	a.wg.Add(1)
	go a.serve()
	return nil
}

// Close stops the API server and cancels every in-flight command.
func (a *Server) Close() {
	a.cancel()
	if a.ln != nil {
		_ = a.ln.Close()
	}
	a.wg.Wait()
}

func (a *Server) serve() {
	defer a.wg.Done()
	for {
		c, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				a.logger.Info("API server stopped")
				return
			}
			a.logger.Info("API accept error", "error", err)
			return
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.handleConn(c)
		}()
	}
}

func (a *Server) writeError(w io.Writer, msg string) {
	problem := map[string]string{"error": msg}
	problemJSON, _ := json.Marshal(problem)
	fmt.Fprintf(w, "%s\n", string(problemJSON))
}

func (a *Server) writeOK(w io.Writer, rest string) {
	if rest == "" {
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n", rest)
	}
}

// readLines feeds lines to the handler loop and cancels the connection
// context when the peer goes away, so a blocked handler returns early.
func (a *Server) readLines(ctx context.Context, cancel context.CancelFunc, conn net.Conn, logger *slog.Logger) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		defer cancel()
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				if err != io.EOF && !errors.Is(err, net.ErrClosed) {
					logger.Error("read api line", "error", err)
				}
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (a *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(a.ctx)
	defer connCancel()
	stop := context.AfterFunc(a.ctx, func() { _ = conn.Close() })
	defer stop()

	connLogger := a.logger.With("remote", conn.RemoteAddr().String())
	w := conn
	for line := range a.readLines(connCtx, connCancel, conn, connLogger) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		connLogger.Debug("api cmd", "cmd", line)
		fields := strings.Fields(line)
		path := strings.ToLower(fields[0])
		args := fields[1:]

		h, params := a.router.Match(path)
		if h == nil {
			connLogger.Error("api unknown path", "path", path)
			a.writeError(w, "unknown path")
			continue
		}
		req := &Request{Ctx: connCtx, Params: params, Args: args}
		res := &Response{}
		if err := h(req, res, connLogger); err != nil {
			connLogger.Error("api handler error", "path", path, "error", err)
			a.writeError(w, err.Error())
			continue
		}
		connLogger.Debug("api handler success", "path", path)
		a.writeOK(w, res.JSON)
	}
}
