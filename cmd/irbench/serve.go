package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/store"
	"github.com/akolanti/irbench/internal/domain/jobModel"
	"github.com/akolanti/irbench/internal/eval"
	"github.com/akolanti/irbench/internal/handlers"
	"github.com/akolanti/irbench/internal/irdataset"
	"github.com/akolanti/irbench/internal/job"
	"github.com/akolanti/irbench/internal/mcpserver"
	"github.com/akolanti/irbench/internal/middleware"
	"github.com/akolanti/irbench/internal/pipeline"
	"github.com/akolanti/irbench/internal/querygen"
	"github.com/akolanti/irbench/internal/server"
	"github.com/akolanti/irbench/internal/worker"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/spf13/cobra"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the job API and worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listenAddrFlag, "listen-addr", "", "server listen address, overrides server.listen_addr")
	return cmd
}

var listenAddrFlag string

func (o *rootOptions) serve(parent context.Context) error {
	logger := logger_i.NewLogger("main")
	cfg := o.cfg
	if listenAddrFlag != "" {
		cfg.Server.ListenAddr = listenAddrFlag
	}

	//init buffered job channel
	jobChannel := make(chan jobModel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel := make(chan bool, 1)
	var workerWaitGroup sync.WaitGroup

	serviceContext, closeExternalServices := context.WithCancel(parent)
	defer closeExternalServices()

	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
	}
	if cfg.Redis.Enabled {
		jobs := store.GetRedisJobStore(serviceContext, cfg.Redis)
		events := store.GetRedisEventStore(serviceContext, cfg.Redis)
		if jobs != nil && events != nil {
			serviceConfig.JobStore = jobs
			serviceConfig.EventStore = events
		} else if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return errors.New("redis stores are offline")
		} else {
			logger.Error("Redis stores are offline, falling back to memory")
		}
	}
	if serviceConfig.JobStore == nil {
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.EventStore = store.InitInMemoryEventStore()
	}
	logger.Info("Starting job service")
	jobService := job.InitJobService(serviceConfig)

	st, err := o.openStore(serviceContext)
	if err != nil {
		return err
	}
	defer st.Close()

	httpClient := pipeline.NewHTTPClient()
	deps := pipeline.Deps{
		Builder:    irdataset.NewBuilder(st, cfg.Paths.OutputDir),
		Retrievers: pipeline.NewRetrieverFactory(cfg, httpClient),
		OutRoot:    cfg.Paths.OutputDir,
		Eval:       cfg.Eval,
	}
	if provider, err := pipeline.NewLLMProvider(serviceContext, cfg.LLM, httpClient); err != nil {
		logger.Warn("LLM provider unavailable, querygen jobs will fail", "error", err)
	} else {
		deps.Generator = querygen.NewGenerator(provider, st, cfg.LLM, cfg.Paths.OutputDir)
	}

	middleware.Configure(cfg.Server)
	handlers.InitJobHandler(jobService)

	//init worker pool
	worker.InitServices(jobService, pipeline.NewService(deps))
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	})
	go server.CreateServer(cfg.Server.ListenAddr)

	<-stopExecution
	logger.Info("Server stopped")
	return nil
}

func newMCPCmd(o *rootOptions) *cobra.Command {
	var dataset string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve BM25 search over a dataset as MCP tools on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			ds, err := eval.LoadDataset(dataset)
			if err != nil {
				return err
			}
			srv, err := mcpserver.New(ctx, ds, version)
			if err != nil {
				return err
			}
			defer srv.Close()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "dataset directory with metadata.yaml")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
