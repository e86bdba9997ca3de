package main

import (
	"fmt"

	"github.com/dogmatiq/beaconq"
	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/queuestore/redisstore"
	"github.com/dogmatiq/dodeca/config"
)

// Environment variables used to configure the relay.
const (
	listenAddressKey  = "BEACONQ_LISTEN_ADDRESS"
	collectorURLKey   = "BEACONQ_COLLECTOR_URL"
	storeKey          = "BEACONQ_STORE"
	boltPathKey       = "BEACONQ_BOLT_PATH"
	sqlDSNKey         = "BEACONQ_SQL_DSN"
	redisAddrKey      = "BEACONQ_REDIS_ADDR"
	redisKeyKey       = "BEACONQ_REDIS_KEY"
	overridesKey      = "BEACONQ_OVERRIDES"
	queueTimeParamKey = "BEACONQ_QUEUE_TIME_PARAM"
	debugKey          = "BEACONQ_DEBUG"
)

// Names of the supported queue store backends.
const (
	boltStore     = "bolt"
	sqliteStore   = "sqlite"
	postgresStore = "postgres"
	redisStore    = "redis"
)

// relayConfig is the configuration of the relay.
type relayConfig struct {
	ListenAddress      string
	CollectorURL       string
	Store              string
	BoltPath           string
	SQLDSN             string
	RedisAddr          string
	RedisKey           string
	Overrides          map[string]string
	QueueTimeParameter string
	Debug              bool
}

// loadConfig loads the relay configuration from b.
func loadConfig(b config.Bucket) (relayConfig, error) {
	cfg := relayConfig{
		ListenAddress:      config.AsStringDefault(b, listenAddressKey, beaconq.DefaultListenAddress),
		CollectorURL:       config.AsStringDefault(b, collectorURLKey, beaconq.DefaultCollectorURL.String()),
		Store:              config.AsStringDefault(b, storeKey, boltStore),
		BoltPath:           config.AsStringDefault(b, boltPathKey, "/var/run/beaconq.boltdb"),
		SQLDSN:             config.AsStringDefault(b, sqlDSNKey, ""),
		RedisAddr:          config.AsStringDefault(b, redisAddrKey, "localhost:6379"),
		RedisKey:           config.AsStringDefault(b, redisKeyKey, redisstore.DefaultKey),
		QueueTimeParameter: config.AsStringDefault(b, queueTimeParamKey, ""),
		Debug:              config.AsBoolDefault(b, debugKey, false),
	}

	cfg.Overrides = beacon.ParseParams(
		config.AsStringDefault(b, overridesKey, ""),
	).Map()

	if _, ok := cfg.Overrides[""]; ok {
		return relayConfig{}, fmt.Errorf("%s contains a parameter with an empty name", overridesKey)
	}

	switch cfg.Store {
	case boltStore, redisStore:
	case sqliteStore, postgresStore:
		if cfg.SQLDSN == "" {
			return relayConfig{}, fmt.Errorf("%s must be set when %s is %q", sqlDSNKey, storeKey, cfg.Store)
		}
	default:
		return relayConfig{}, fmt.Errorf(
			"%s must be one of %q, %q, %q or %q, got %q",
			storeKey,
			boltStore,
			sqliteStore,
			postgresStore,
			redisStore,
			cfg.Store,
		)
	}

	return cfg, nil
}
