package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	appconfig "github.com/exoslabs/cosigner/internal/app-config"
	"github.com/exoslabs/cosigner/internal/config"
	"github.com/exoslabs/cosigner/internal/interfaces"
	http_interface "github.com/exoslabs/cosigner/internal/interfaces/http"
	"github.com/exoslabs/cosigner/pkg/profiler"
)

var (
	// Build info.
	version string
	commit  string
	date    string

	// Config from env vars.
	dbType              = config.GetString(config.DatabaseTypeKey)
	lockCoordinatorType = config.GetString(config.LockCoordinatorTypeKey)
	logLevel            = config.GetInt(config.LogLevelKey)
	datadir             = config.GetDatadir()
	port                = config.GetInt(config.PortKey)
	profilerPort        = config.GetInt(config.ProfilerPortKey)
	network             = config.GetNetwork()
	noProfiler          = config.GetBool(config.NoProfilerKey)
	dbDir               = filepath.Join(datadir, config.DbLocation)
	profilerDir         = filepath.Join(datadir, config.ProfilerLocation)
	statsInterval       = time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
	sessionDuration     = config.GetInt(config.SessionDurationKey)
	walletRpcAddr       = config.GetString(config.WalletRpcAddrKey)
	walletRpcTimeout    = config.GetInt(config.WalletRpcTimeoutKey)
	redisAddr           = config.GetString(config.RedisAddrKey)
	redisPass           = config.GetString(config.RedisPassKey)
	redisDb             = config.GetInt(config.RedisDbKey)
)

func main() {
	log.SetLevel(log.Level(logLevel))

	if profilerEnabled := !noProfiler; profilerEnabled {
		profilerSvc, err := profiler.NewService(profiler.ServiceOpts{
			Port:          profilerPort,
			StatsInterval: statsInterval,
			Datadir:       profilerDir,
		})
		if err != nil {
			log.WithError(err).Fatal("profiler: error while starting")
		}

		profilerSvc.Start()
		defer func() {
			profilerSvc.Stop()
		}()
	}

	serviceCfg := http_interface.ServiceConfig{
		Port: port,
	}
	appCfg := &appconfig.AppConfig{
		Version:             version,
		Commit:              commit,
		Date:                date,
		Network:             network,
		SessionDuration:     int64(sessionDuration),
		WalletRpcAddr:       walletRpcAddr,
		WalletRpcTimeout:    walletRpcTimeout,
		RepoManagerType:     dbType,
		LockCoordinatorType: lockCoordinatorType,
		RepoManagerConfig:   dbDir,
		LockCoordinatorConfig: appconfig.RedisConfig{
			Addr:     redisAddr,
			Password: redisPass,
			Db:       redisDb,
		},
	}

	serviceManager, err := interfaces.NewHttpServiceManager(serviceCfg, appCfg)
	if err != nil {
		log.WithError(err).Fatal("service: error while initializing")
	}
	defer func() {
		serviceManager.Service.Stop()
	}()

	if err := serviceManager.Service.Start(); err != nil {
		log.WithError(err).Fatal("service: error while starting")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
}
