package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the key to customize the cosignerd datadir.
	DatadirKey = "DATADIR"
	// DatabaseTypeKey is the key to customize the type of database to use.
	DatabaseTypeKey = "DATABASE_TYPE"
	// LockCoordinatorTypeKey is the key to customize the type of lock
	// coordinator to use.
	LockCoordinatorTypeKey = "LOCK_COORDINATOR_TYPE"
	// PortKey is the key to customize the port where the daemon will be
	// listening to.
	PortKey = "PORT"
	// ProfilerPortKey is the key to customize the port where the profiler will
	// be listening to.
	ProfilerPortKey = "PROFILER_PORT"
	// NetworkKey is the key to customize the Bitcoin network.
	NetworkKey = "NETWORK"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// NoProfilerKey is the key to disable Prometheus profiling.
	NoProfilerKey = "NO_PROFILER"
	// StatsIntervalKey is the key to customize the interval for the profiler to
	// gather profiling stats.
	StatsIntervalKey = "STATS_INTERVAL"
	// WalletRpcAddrKey is the key to set the rpc address of the wallet daemon
	// holding this cosigner's keys.
	WalletRpcAddrKey = "WALLET_RPC_ADDR"
	// WalletRpcTimeoutKey is the key to customize the timeout in seconds for
	// wallet daemon rpc calls.
	WalletRpcTimeoutKey = "WALLET_RPC_TIMEOUT_IN_SECONDS"
	// SessionDurationKey is the key to customize the duration of a signing
	// round before the session times out.
	SessionDurationKey = "SESSION_DURATION_IN_SECONDS"
	// RedisAddrKey is the key to set the address of the redis instance shared
	// by the cosigners as lock coordinator.
	RedisAddrKey = "REDIS_ADDR"
	// RedisPassKey is the key to set the password of the redis instance.
	RedisPassKey = "REDIS_PASS"
	// RedisDbKey is the key to set the redis database number.
	RedisDbKey = "REDIS_DB"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// ProfilerLocation is the folder inside the datadir containing profiler
	// stats files.
	ProfilerLocation = "stats"
)

var (
	vip *viper.Viper

	defaultDatadir          = btcutil.AppDataDir("cosignerd", false)
	defaultDbType           = "badger"
	defaultLockCoordinator  = "redis"
	defaultPort             = 18000
	defaultLogLevel         = 4
	defaultNetwork          = chaincfg.MainNetParams.Name
	defaultProfilerPort     = 18001
	defaultStatsInterval    = 600 // 10 minutes
	defaultSessionDuration  = 600 // 10 minutes
	defaultWalletRpcAddr    = "http://127.0.0.1:7777"
	defaultWalletRpcTimeout = 30
	defaultRedisAddr        = "127.0.0.1:6379"

	supportedNetworks = map[string]*chaincfg.Params{
		chaincfg.MainNetParams.Name:       &chaincfg.MainNetParams,
		chaincfg.TestNet3Params.Name:      &chaincfg.TestNet3Params,
		chaincfg.RegressionNetParams.Name: &chaincfg.RegressionNetParams,
	}
	SupportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
	}
	SupportedLockCoordinators = supportedType{
		"redis":    {},
		"inmemory": {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("COSIGNER")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DatabaseTypeKey, defaultDbType)
	vip.SetDefault(LockCoordinatorTypeKey, defaultLockCoordinator)
	vip.SetDefault(PortKey, defaultPort)
	vip.SetDefault(NetworkKey, defaultNetwork)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(NoProfilerKey, false)
	vip.SetDefault(ProfilerPortKey, defaultProfilerPort)
	vip.SetDefault(StatsIntervalKey, defaultStatsInterval)
	vip.SetDefault(SessionDurationKey, defaultSessionDuration)
	vip.SetDefault(WalletRpcAddrKey, defaultWalletRpcAddr)
	vip.SetDefault(WalletRpcTimeoutKey, defaultWalletRpcTimeout)
	vip.SetDefault(RedisAddrKey, defaultRedisAddr)
	vip.SetDefault(RedisDbKey, 0)

	if err := validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	if err := initDatadir(); err != nil {
		log.Fatalf("config: error while creating datadir: %s", err)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	net := GetString(NetworkKey)
	if len(net) == 0 {
		return fmt.Errorf("network must not be null")
	}
	if _, ok := supportedNetworks[net]; !ok {
		nets := make([]string, 0, len(supportedNetworks))
		for net := range supportedNetworks {
			nets = append(nets, net)
		}
		return fmt.Errorf("unknown network, must be one of: %v", nets)
	}

	dbType := GetString(DatabaseTypeKey)
	if _, ok := SupportedDbs[dbType]; !ok {
		return fmt.Errorf("unsupported database type, must be one of %s", SupportedDbs)
	}

	lockCoordinatorType := GetString(LockCoordinatorTypeKey)
	if _, ok := SupportedLockCoordinators[lockCoordinatorType]; !ok {
		return fmt.Errorf(
			"unsupported lock coordinator type, must be one of %s",
			SupportedLockCoordinators,
		)
	}

	if lockCoordinatorType == "redis" {
		if addr := GetString(RedisAddrKey); len(addr) <= 0 {
			return fmt.Errorf("redis address must not be null")
		}
	}

	if duration := GetInt(SessionDurationKey); duration <= 0 {
		return fmt.Errorf("session duration must be a positive amount of seconds")
	}

	port := GetInt(PortKey)
	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		profilerPort := GetInt(ProfilerPortKey)
		if port == profilerPort {
			return fmt.Errorf("port and profiler port must not be equal")
		}
	}

	return nil
}

func GetDatadir() string {
	return filepath.Join(GetString(DatadirKey), GetString(NetworkKey))
}

func GetNetwork() *chaincfg.Params {
	return supportedNetworks[GetString(NetworkKey)]
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func Unset(key string) {
	vip.Set(key, nil)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}
