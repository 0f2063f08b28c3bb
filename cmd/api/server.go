package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"truebalance/internal/shared/config"
	"truebalance/internal/shared/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler      http.Handler
	Addr         string
	TLSEnabled   bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
	AllowedHosts []string
}

// WriteTimeout leaves room for a full sync against a slow provider.
const writeTimeout = 90 * time.Second

// StartServers creates and starts the main server and optional redirect server.
// Serve errors are sent on the returned channel.
func StartServers(scfg ServerConfig, logger logrus.FieldLogger) (srv, redirectSrv *http.Server, errc <-chan error) {
	srv = &http.Server{
		Addr:              scfg.Addr,
		Handler:           scfg.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errs := make(chan error, 2)

	if scfg.TLSEnabled && scfg.RedirectHTTP {
		redirectSrv = createRedirectServer(scfg.AllowedHosts)
		go func() {
			logger.WithField("addr", redirectSrv.Addr).Info("HTTP redirect server starting")
			if err := redirectSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("HTTP redirect server error")
			}
		}()
	}

	go func() {
		var err error
		if scfg.TLSEnabled {
			logger.WithField("addr", scfg.Addr).Info("HTTPS server starting")
			err = srv.ListenAndServeTLS(scfg.CertPath, scfg.KeyPath)
		} else {
			logger.WithField("addr", scfg.Addr).Info("HTTP server starting")
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	return srv, redirectSrv, errs
}

// GracefulShutdown performs graceful shutdown of all servers.
func GracefulShutdown(srv, redirectSrv *http.Server, timeout time.Duration, logger logrus.FieldLogger) {
	logger.Info("Server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if redirectSrv != nil {
		if err := redirectSrv.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Error shutting down HTTP redirect server")
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Error shutting down main server")
	}

	logger.Info("Server stopped")
}

// createRedirectServer answers every plain HTTP request with a redirect to HTTPS.
func createRedirectServer(allowedHosts []string) *http.Server {
	return &http.Server{
		Addr:         ":80",
		Handler:      middleware.RequireHTTPS(allowedHosts)(http.NotFoundHandler()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:      handler,
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		TLSEnabled:   cfg.TLS.Enabled,
		CertPath:     cfg.TLS.CertPath,
		KeyPath:      cfg.TLS.KeyPath,
		RedirectHTTP: cfg.TLS.RedirectHTTP,
		AllowedHosts: cfg.Server.AllowedHosts,
	}
}
