// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dalemusser/mild/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme/autocert"
)

// certWarmTimeout bounds how long startup waits for the first ACME certificate.
const certWarmTimeout = 60 * time.Second

// WithShutdownSignals returns a context canceled on SIGINT or SIGTERM.
// The cancel func also stops signal delivery.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.Stringer("signal", sig))
			}
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ListenAndServeWithContext serves handler until ctx is canceled, then
// shuts down within cfg.HTTP.ShutdownTimeout. It serves plain HTTP unless
// use_https is set, in which case it serves TLS from either cert_file and
// key_file or Let's Encrypt (http-01), with :80 redirecting to HTTPS.
func ListenAndServeWithContext(ctx context.Context, cfg *config.CoreConfig, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil || handler == nil {
		return errors.New("server: cfg and handler are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := newServer(cfg, handler, logger)

	if !cfg.HTTP.UseHTTPS {
		addr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", addr, err)
		}
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		return serve(ctx, cfg, srv, ln, nil, logger)
	}

	var (
		tlsCfg   *tls.Config
		redirect http.Handler = RedirectHandler()
	)
	if cfg.TLS.UseLetsEncrypt {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
			Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
			Email:      cfg.TLS.LetsEncryptEmail,
		}
		redirect = m.HTTPHandler(redirect)
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, GetCertificate: m.GetCertificate}
		aux := newServer(cfg, redirect, logger)
		aux.Addr = ":80"
		auxErr := startAux(aux, logger)
		if err := waitForCert(ctx, m, cfg.TLS.Domain, certWarmTimeout); err != nil {
			logger.Warn("certificate not ready; first HTTPS requests may fail", zap.Error(err))
		}
		return serveTLS(ctx, cfg, srv, tlsCfg, aux, auxErr, logger)
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return fmt.Errorf("load TLS cert/key: %w", err)
	}
	tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}
	aux := newServer(cfg, redirect, logger)
	aux.Addr = ":80"
	auxErr := startAux(aux, logger)
	return serveTLS(ctx, cfg, srv, tlsCfg, aux, auxErr, logger)
}

func newServer(cfg *config.CoreConfig, h http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}
	return srv
}

func startAux(aux *http.Server, logger *zap.Logger) <-chan error {
	ch := make(chan error, 1)
	go func() {
		err := aux.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		ch <- err
	}()
	logger.Info("redirect server listening", zap.String("addr", aux.Addr))
	return ch
}

func serveTLS(ctx context.Context, cfg *config.CoreConfig, srv *http.Server, tlsCfg *tls.Config, aux *http.Server, auxErr <-chan error, logger *zap.Logger) error {
	addr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	srv.TLSConfig = tlsCfg
	base, err := net.Listen("tcp", addr)
	if err != nil {
		_ = aux.Close()
		return fmt.Errorf("listen https %s: %w", addr, err)
	}
	logger.Info("HTTPS server listening",
		zap.String("addr", base.Addr().String()),
		zap.Bool("lets_encrypt", cfg.TLS.UseLetsEncrypt),
		zap.String("domain", cfg.TLS.Domain),
	)
	return serve(ctx, cfg, srv, tls.NewListener(base, tlsCfg), &auxServer{aux, auxErr}, logger)
}

type auxServer struct {
	srv  *http.Server
	done <-chan error
}

// serve runs srv on ln until ctx ends or a server fails.
func serve(ctx context.Context, cfg *config.CoreConfig, srv *http.Server, ln net.Listener, aux *auxServer, logger *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	var auxDone <-chan error
	if aux != nil {
		auxDone = aux.done
	}
	closeAux := func(ctx context.Context) {
		if aux != nil {
			_ = aux.srv.Shutdown(ctx)
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		closeAux(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil

	case err := <-serveErr:
		closeAux(context.Background())
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case err := <-auxDone:
		_ = srv.Close()
		if err != nil {
			return fmt.Errorf("redirect server error: %w", err)
		}
		return errors.New("redirect server stopped unexpectedly")
	}
}

// waitForCert polls autocert until host has a certificate, ctx ends, or
// timeout passes.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for certificate for %q: %w", host, err)
		case <-t.C:
		}
	}
}
