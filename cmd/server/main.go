package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/liuwen/promptreel/internal/api"
	"github.com/liuwen/promptreel/internal/config"
	"github.com/liuwen/promptreel/internal/gateway"
	"github.com/liuwen/promptreel/internal/product"
	"github.com/liuwen/promptreel/internal/store"
	"github.com/liuwen/promptreel/internal/worker"
	"github.com/liuwen/promptreel/internal/workflow"
)

func main() {
	cfg := config.Load()

	// Open SQLite archive.
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	archive, err := store.NewArchive(db)
	if err != nil {
		log.Fatalf("init archive: %v", err)
	}

	// Restore artifacts from the previous run.
	st := store.New()
	arts, err := archive.LoadAll(context.Background())
	if err != nil {
		log.Fatalf("load archive: %v", err)
	}
	if len(arts) > 0 {
		st.Load(arts)
		log.Printf("restored %d artifacts from %s", len(arts), cfg.DBPath)
	}

	// Pick the prompt gateway.
	var gw gateway.Client
	if cfg.UseStubGateway() {
		log.Println("BACKEND_URL not set, using offline stub gateway")
		gw = &gateway.Stub{}
	} else {
		log.Printf("using prompt backend at %s", cfg.BackendURL)
		gw = gateway.New(
			gateway.WithBaseURL(cfg.BackendURL),
			gateway.WithTimeouts(cfg.GenerateTimeout, cfg.MutateTimeout),
		)
	}

	flow := workflow.New(gw, st)
	extractor := product.NewPageExtractor(cfg.ExtractTimeout)

	// Start archiver in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	arch := worker.New(st, archive, cfg.ArchiveInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		arch.Start(ctx)
	}()

	// Start API server.
	srv := api.New(st, flow, extractor,
		api.WithCORSOrigin(cfg.CORSOrigin),
		api.WithMaxBody(cfg.MaxUploadBytes),
	)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		httpServer.Shutdown(context.Background())
		cancel()
	}()

	fmt.Printf("promptreel server listening on http://localhost:%s\n", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	// Wait for the archiver's final flush before exiting.
	cancel()
	wg.Wait()
}
