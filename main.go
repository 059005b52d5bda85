package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/pkg/config"
	"github.com/wrath-m/boilerplate-express/internal/pkg/logger"
	"github.com/wrath-m/boilerplate-express/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file found, using environment variables")
	}

	if err := logger.Init(zap.InfoLevel); err != nil {
		return err
	}
	l := logger.Log
	defer l.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	otelShutdown, err := server.InitObservability("boilerplate-express", ":9092", l)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			l.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	srv, err := server.New(cfg, l)
	if err != nil {
		return err
	}
	defer srv.Close()

	router, sessionStore := server.SetupRouter(srv.GetDBPool(), cfg, l)

	if err := server.SetupAssets(router); err != nil {
		return err
	}

	srv.SetRouter(router)
	srv.SetSessionStore(sessionStore)

	server.StartPprofServer(":6060")

	httpServer := srv.HTTPServer()

	done := make(chan bool, 1)
	go server.GracefulShutdown(httpServer, l, done)

	l.Info("Server starting", zap.String("addr", cfg.ListenAddr()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done
	l.Info("Server stopped")
	return nil
}
