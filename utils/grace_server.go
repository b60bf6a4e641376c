package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	shutdownTimeout     = 30 * time.Second

	gracefulEnvKey     = "COMMUNITY_GRACEFUL"
	gracefulEnvValue   = gracefulEnvKey + "=1"
	gracefulListenerFD = 3
)

// Server wraps http.Server with signal driven shutdown and zero-downtime restart.
// SIGTERM and SIGINT stop it; SIGUSR2 forks a child that inherits the listener.
type Server struct {
	*http.Server

	listener   net.Listener
	isGraceful bool
	signalChan chan os.Signal
	done       chan struct{}
	closeOnce  sync.Once
	hooks      []func(context.Context)
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       defaultReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      defaultWriteTimeout,
		},
		isGraceful: os.Getenv(gracefulEnvKey) != "",
		signalChan: make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}
}

// OnShutdown registers fn to run after the HTTP server stopped accepting requests.
func (srv *Server) OnShutdown(fn func(context.Context)) {
	srv.hooks = append(srv.hooks, fn)
}

// ListenAndServe serves until a stop signal arrives or ctx is cancelled, then drains in-flight requests.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	ln, err := srv.getNetListener(srv.Addr)
	if err != nil {
		return err
	}
	srv.listener = ln

	signal.Notify(srv.signalChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)
	defer signal.Stop(srv.signalChan)
	go srv.handleSignals(ctx)

	if err := srv.Server.Serve(srv.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	// Serve returns as soon as Shutdown starts; wait for draining and hooks.
	<-srv.done
	return nil
}

func (srv *Server) getNetListener(addr string) (net.Listener, error) {
	if srv.isGraceful {
		file := os.NewFile(gracefulListenerFD, "")
		ln, err := net.FileListener(file)
		if err != nil {
			return nil, fmt.Errorf("net.FileListener error: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.Listen error: %w", err)
	}
	return ln, nil
}

func (srv *Server) handleSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			Logger.Info("context cancelled, shutting down HTTP server")
			srv.shutdown()
			return
		case sig := <-srv.signalChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				Logger.Info("received stop signal, shutting down HTTP server", zap.String("signal", sig.String()))
				srv.shutdown()
				return
			case syscall.SIGUSR2:
				pid, err := srv.startNewProcess()
				if err != nil {
					Logger.Error("graceful restart failed, continue serving", zap.Error(err))
					continue
				}
				Logger.Info("new process started, closing old HTTP server", zap.Int("pid", pid))
				srv.shutdown()
				return
			}
		}
	}
}

func (srv *Server) shutdown() {
	srv.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			Logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		for _, fn := range srv.hooks {
			fn(ctx)
		}
		close(srv.done)
	})
}

// startNewProcess re-executes the binary and hands it the listening socket.
func (srv *Server) startNewProcess() (int, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is not *net.TCPListener")
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("get listener file: %w", err)
	}

	envs := []string{}
	for _, e := range os.Environ() {
		if e != gracefulEnvValue {
			envs = append(envs, e)
		}
	}
	envs = append(envs, gracefulEnvValue)

	attr := &syscall.ProcAttr{
		Env:   envs,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	}
	pid, err := syscall.ForkExec(os.Args[0], os.Args, attr)
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return pid, nil
}
