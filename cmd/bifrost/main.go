// Command bifrost is the daemon entrypoint: it loads the bridge's identity,
// wires the resource store, event bus, GW clients, persistence writer, HTTP
// servers, and mDNS advertisement together and runs until killed.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bifrost/internal/config"
	"bifrost/internal/gw"
	"bifrost/internal/httpapi"
	"bifrost/internal/identity"
	"bifrost/internal/mdns"
	"bifrost/internal/persistence"
	"bifrost/internal/store"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "main")

const shutdownGrace = 5 * time.Second

func macString(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

func main() {
	if err := config.NewRootCommand(run).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	id, err := identity.Load(cfg.IdentityFile, cfg.Mac)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	s := store.New()
	s.Init(id.BridgeID)

	if data, err := os.ReadFile(cfg.StateFile); err == nil {
		if err := s.Load(data); err != nil {
			log.WithError(err).Warn("failed to load persisted state, starting fresh")
		} else {
			log.WithField("path", cfg.StateFile).Info("loaded persisted state")
		}
	}

	writer := persistence.New(cfg.StateFile, s)
	go func() {
		if err := writer.Run(ctx); err != nil {
			log.WithError(err).Error("persistence writer stopped")
		}
	}()

	for _, up := range cfg.GWUpstreams {
		client := gw.New(up.Name, up.URL, s)
		go client.RunForever(ctx)
	}

	srv := httpapi.NewServer(s, id.BridgeID, macString(cfg.Mac), cfg.Name)
	handler := srv.NewRouter()

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTPPort), Handler: handler}
	go func() {
		log.WithField("addr", httpServer.Addr).Info("starting HTTP listener")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped")
		}
	}()

	httpsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPSPort),
		Handler: handler,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{{Certificate: [][]byte{id.DER}, PrivateKey: id.Key, Leaf: id.Certificate}},
		},
	}
	go func() {
		log.WithField("addr", httpsServer.Addr).Info("starting HTTPS listener")
		if err := httpsServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("https server stopped")
		}
	}()

	mdnsServer, err := mdns.Register(cfg.Mac, id.BridgeID, cfg.HTTPPort)
	if err != nil {
		log.WithError(err).Warn("mdns registration failed, continuing without it")
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = httpsServer.Shutdown(shutdownCtx)
	if mdnsServer != nil {
		mdnsServer.Shutdown()
	}
	return nil
}
