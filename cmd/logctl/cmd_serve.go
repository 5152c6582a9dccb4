package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/estuary/epochlog/go/commit"
	"github.com/estuary/epochlog/go/device"
	epochlog "github.com/estuary/epochlog/go/log"
	"github.com/estuary/epochlog/go/rpc"
)

type cmdServe struct {
	Log LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`

	Name          string `long:"name" env:"NAME" default:"default" description:"Name labeling this log's metrics and log lines"`
	DataPath      string `long:"data-path" env:"DATA_PATH" required:"true" description:"Path of the backing data file"`
	DBPath        string `long:"db-path" env:"DB_PATH" required:"true" description:"Path of the SQLite commit-metadata database"`
	Bucket        string `long:"bucket" env:"BUCKET" description:"GCS bucket to store pages in, instead of a local file device"`
	PageSize      int    `long:"page-size" env:"PAGE_SIZE" default:"4194304" description:"Size in bytes of each log page"`
	PageCount     int    `long:"page-count" env:"PAGE_COUNT" default:"16" description:"Number of in-memory pages retained by the allocator"`
	FlushWorkers  int    `long:"flush-workers" env:"FLUSH_WORKERS" default:"4" description:"Number of concurrent page-flush workers"`
	Address       string `long:"address" env:"ADDRESS" default:":8420" description:"Address to serve gRPC on"`
	MetricsAddr   string `long:"metrics-address" env:"METRICS_ADDRESS" default:":9420" description:"Address to serve Prometheus metrics on"`
}

func (cmd cmdServe) Execute(_ []string) error {
	initLog(cmd.Log)

	var dev device.Device
	var err error
	if cmd.Bucket != "" {
		dev = device.NewGCSDevice(cmd.Bucket, cmd.Name, int64(cmd.PageSize))
	} else {
		dev, err = device.NewFileDevice(cmd.DataPath)
	}
	if err != nil {
		return fmt.Errorf("opening device: %w", err)
	}

	mgr, err := commit.OpenSQLiteCommitManager(cmd.DBPath)
	if err != nil {
		return fmt.Errorf("opening commit manager: %w", err)
	}

	var l *epochlog.Log
	l, err = epochlog.Open(epochlog.Config{
		Name:          cmd.Name,
		PageSize:      cmd.PageSize,
		PageCount:     cmd.PageCount,
		FlushWorkers:  cmd.FlushWorkers,
		Device:        dev,
		CommitManager: mgr,
	})
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer l.Dispose()

	var lis net.Listener
	lis, err = net.Listen("tcp", cmd.Address)
	if err != nil {
		return fmt.Errorf("binding listener: %w", err)
	}

	var grpcServer = rpc.NewGRPCServer(rpc.NewServer(l))

	var metricsMux = http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	var metricsServer = &http.Server{Addr: cmd.MetricsAddr, Handler: metricsMux}

	var errCh = make(chan error, 2)
	go func() { errCh <- grpcServer.Serve(lis) }()
	go func() { errCh <- metricsServer.ListenAndServe() }()

	log.WithFields(log.Fields{
		"name": cmd.Name, "address": cmd.Address, "metricsAddress": cmd.MetricsAddr,
	}).Info("logctl: serving")

	var signalCh = make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-signalCh:
		log.WithField("signal", sig).Info("logctl: caught signal, stopping")
		grpcServer.GracefulStop()
		metricsServer.Close()
		return nil
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	}
}
