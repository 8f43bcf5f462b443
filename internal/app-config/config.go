package appconfig

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"

	"github.com/exoslabs/cosigner/internal/config"
	"github.com/exoslabs/cosigner/internal/core/application"
	"github.com/exoslabs/cosigner/internal/core/ports"
	inmemorylock "github.com/exoslabs/cosigner/internal/infrastructure/lock-coordinator/inmemory"
	redislock "github.com/exoslabs/cosigner/internal/infrastructure/lock-coordinator/redis"
	dbbadger "github.com/exoslabs/cosigner/internal/infrastructure/storage/db/badger"
	"github.com/exoslabs/cosigner/internal/infrastructure/storage/db/inmemory"
	"github.com/exoslabs/cosigner/internal/infrastructure/wallet-service/electrumd"
)

// AppConfig is the struct holding all configuration options for the
// application service. This data structure acts also as a factory of the
// service and of the portable services used by it.
// Public config args:
//   - Network - (required) The Bitcoin network (mainnet, testnet3, regtest).
//   - SessionDuration - (required) The duration in seconds of a signing round before a session times out.
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - LockCoordinatorType - (required) One of the supported lock coordinator types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
//   - LockCoordinatorConfig - (optional) Custom config args for the lock coordinator based on its type.
//   - WalletRpcAddr - (required) Address of the wallet daemon rpc interface.
type AppConfig struct {
	Version string
	Commit  string
	Date    string

	Network          *chaincfg.Params
	SessionDuration  int64
	WalletRpcAddr    string
	WalletRpcTimeout int

	RepoManagerType       string
	LockCoordinatorType   string
	RepoManagerConfig     interface{}
	LockCoordinatorConfig interface{}

	rm         ports.RepoManager
	lc         ports.LockCoordinator
	walletSvc  ports.WalletService
	sessionSvc *application.SessionService
}

// RedisConfig holds the config args for the redis lock coordinator.
type RedisConfig struct {
	Addr     string
	Password string
	Db       int
}

func (c *AppConfig) Validate() error {
	if c.Network == nil {
		return fmt.Errorf("missing network")
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("missing session duration")
	}
	if len(c.WalletRpcAddr) <= 0 {
		return fmt.Errorf("missing wallet rpc address")
	}
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if len(c.LockCoordinatorType) == 0 {
		return fmt.Errorf("missing lock coordinator type")
	}
	if _, ok := config.SupportedLockCoordinators[c.LockCoordinatorType]; !ok {
		return fmt.Errorf(
			"lock coordinator type not supported, must be one of: %s",
			config.SupportedLockCoordinators,
		)
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.lockCoordinator(); err != nil {
		return err
	}
	if _, err := c.walletService(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) LockCoordinator() ports.LockCoordinator {
	return c.lc
}

func (c *AppConfig) WalletService() ports.WalletService {
	return c.walletSvc
}

func (c *AppConfig) SessionService() *application.SessionService {
	return c.sessionService()
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) lockCoordinator() (ports.LockCoordinator, error) {
	if c.lc != nil {
		return c.lc, nil
	}

	switch c.LockCoordinatorType {
	case "inmemory":
		c.lc = inmemorylock.NewLockCoordinator()
		return c.lc, nil
	case "redis":
		if c.LockCoordinatorConfig == nil {
			return nil, fmt.Errorf("missing lock coordinator config args")
		}
		args, ok := c.LockCoordinatorConfig.(RedisConfig)
		if !ok {
			return nil, fmt.Errorf(
				"invalid lock coordinator config type, must be appconfig.RedisConfig",
			)
		}
		lc, err := redislock.NewLockCoordinator(args.Addr, args.Password, args.Db)
		if err != nil {
			return nil, err
		}
		c.lc = lc
		return c.lc, nil
	default:
		return nil, fmt.Errorf("unknown lock coordinator type")
	}
}

func (c *AppConfig) walletService() (ports.WalletService, error) {
	if c.walletSvc != nil {
		return c.walletSvc, nil
	}

	walletSvc, err := electrumd.NewWalletService(
		c.WalletRpcAddr, c.WalletRpcTimeout,
	)
	if err != nil {
		return nil, err
	}
	c.walletSvc = walletSvc
	return c.walletSvc, nil
}

func (c *AppConfig) sessionService() *application.SessionService {
	if c.sessionSvc != nil {
		return c.sessionSvc
	}

	rm, _ := c.repoManager()
	lc, _ := c.lockCoordinator()
	walletSvc, _ := c.walletService()
	c.sessionSvc = application.NewSessionService(
		rm, lc, walletSvc, c.Network, c.SessionDuration,
	)
	return c.sessionSvc
}
