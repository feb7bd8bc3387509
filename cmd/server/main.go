package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hwzhu/mowan-server/internal/config"
	"github.com/hwzhu/mowan-server/internal/hub"
	"github.com/hwzhu/mowan-server/internal/httpapi"
	"github.com/hwzhu/mowan-server/internal/room"
	"github.com/hwzhu/mowan-server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := buildLogger(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, hub.Config{
		Room: room.Config{
			GraceWindow: cfg.GraceWindow,
			TurnTimer:   cfg.TurnTimer,
		},
		Retention: cfg.Retention,
	}, log, recordResult(db, log))

	api := &httpapi.API{Store: db, Hub: h, Cfg: cfg, Log: log}
	srv := &http.Server{Addr: cfg.Addr, Handler: api.Routes()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// recordResult bumps the win/loss counters when a room finishes.
func recordResult(db *store.Store, log *zap.Logger) func(room.Result) {
	return func(res room.Result) {
		var winner uint64
		if res.Winner != "" {
			winner, _ = strconv.ParseUint(res.Winner, 10, 64)
		}
		participants := make([]uint, 0, len(res.Participants))
		for _, id := range res.Participants {
			n, err := strconv.ParseUint(id, 10, 64)
			if err != nil {
				continue
			}
			participants = append(participants, uint(n))
		}
		if err := db.RecordResult(res.Code, uint(winner), participants); err != nil {
			log.Error("record result", zap.String("room", res.Code), zap.Error(err))
		}
	}
}
