package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mirrorhub/internal/album"
	"mirrorhub/internal/imageproxy"
	"mirrorhub/internal/middleware"
	"mirrorhub/internal/mirror"
	"mirrorhub/pkg/database"
	"mirrorhub/pkg/kv"
	"mirrorhub/pkg/utils"
)

func main() {
	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	upstream := utils.LoadUpstreamConfig()
	server := utils.LoadServerConfig()

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(middleware.RequestID())

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	store := kv.NewSQLite(db)
	repo := mirror.NewRepo(store)
	fetcher := album.NewFetcher(upstream)
	parser := album.NewParser(upstream.Vendor)

	svc := mirror.NewService(repo, fetcher, parser)
	mirror.NewHandler(svc).RegisterRoutes(router)
	imageproxy.NewHandler(upstream).RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:    server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
