package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/STTM-NSU/options-tracker/internal/postgres"
	"github.com/STTM-NSU/options-tracker/internal/server"
	"github.com/STTM-NSU/options-tracker/internal/storage"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Keep positions and quotes fresh and serve them over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return a.run(ctx)
		},
	}
}

func (a *app) run(ctx context.Context) error {
	var (
		recorder *storage.Recorder
		services []func(ctx context.Context)
	)

	if a.cfg.Storage.Enabled {
		pgConfig := postgres.NewConfigFromEnv().Setup()
		a.logger.Debugf("trying to connect to db with: %s", pgConfig)
		db, err := postgres.NewDB(ctx, pgConfig)
		if err != nil {
			return fmt.Errorf("%w: can't connect to db", err)
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}

		recorder = storage.NewRecorder(db, a.cfg.Storage.FlushInterval, a.logger.With("component", "recorder"))
	}

	if a.cfg.Server.Enabled {
		handler := server.NewHandler(a.store, a.pipeline, a.logger.With("component", "server"))
		srv := server.NewHTTPServer(ctx, a.cfg.Server.Port, handler.Routes())

		services = append(services, func(ctx context.Context) {
			a.logger.Infof("serving state on :%s", a.cfg.Server.Port)
			if err := srv.Run(ctx); err != nil {
				a.logger.Errorf("%s: http server stopped", err)
			}
		})
	}

	a.serve(ctx, recorder, services...)
	return nil
}

// serve runs the schedule and services until ctx is done, then shuts down in
// order: services first so nothing dispatches anymore, then in-flight
// stages, then the recorder, whose final flush sees every commit.
func (a *app) serve(ctx context.Context, recorder *storage.Recorder, services ...func(ctx context.Context)) {
	var recorderWg sync.WaitGroup
	recorderCtx, stopRecorder := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRecorder()

	if recorder != nil {
		a.store.Subscribe(recorder.Observe)

		recorderWg.Add(1)
		go func() {
			defer recorderWg.Done()
			recorder.Run(recorderCtx)
		}()
	}

	var servicesWg sync.WaitGroup
	for _, service := range services {
		servicesWg.Add(1)
		go func() {
			defer servicesWg.Done()
			service(ctx)
		}()
	}

	a.schedule(ctx)

	a.logger.Infof("shutting down, waiting for in-flight stages")
	servicesWg.Wait()
	a.pipeline.Wait()

	stopRecorder()
	recorderWg.Wait()
}

// schedule runs the full pipeline every positions interval and refreshes
// quotes every quotes interval until ctx is done.
func (a *app) schedule(ctx context.Context) {
	a.pipeline.Sync(ctx)

	quotesTicker := time.NewTicker(a.cfg.Refresh.QuotesInterval)
	defer quotesTicker.Stop()
	positionsTicker := time.NewTicker(a.cfg.Refresh.PositionsInterval)
	defer positionsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-positionsTicker.C:
			a.logger.Debugf("positions interval elapsed, syncing")
			a.pipeline.Sync(ctx)
		case <-quotesTicker.C:
			a.logger.Debugf("quotes interval elapsed, refreshing")
			a.pipeline.Refresh(ctx)
		}
	}
}
