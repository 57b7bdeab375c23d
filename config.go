package eventhub

import (
	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/eventhub/transport"
)

// EndpointFromConfig returns the endpoint described by cfg.
//
// It reads EVENTHUB_ADDRESS and EVENTHUB_HUB.
func EndpointFromConfig(cfg config.Bucket) transport.Endpoint {
	return transport.Endpoint{
		Address: config.AsStringDefault(cfg, "EVENTHUB_ADDRESS", "localhost:5671"),
		Hub:     config.AsStringDefault(cfg, "EVENTHUB_HUB", ""),
	}
}

// CredentialsFromConfig returns the credentials described by cfg.
//
// It reads EVENTHUB_KEY_NAME and EVENTHUB_KEY.
func CredentialsFromConfig(cfg config.Bucket) transport.Credentials {
	return transport.Credentials{
		KeyName: config.AsStringDefault(cfg, "EVENTHUB_KEY_NAME", ""),
		Key:     config.AsStringDefault(cfg, "EVENTHUB_KEY", ""),
	}
}

// OptionsFromConfig returns client options described by cfg.
//
// It reads EVENTHUB_MAX_BATCH_SIZE, EVENTHUB_MAX_CONSECUTIVE_FAILURES and
// EVENTHUB_CONCURRENCY_LIMIT. Keys that are not defined are ignored. It panics
// if a value is invalid.
func OptionsFromConfig(cfg config.Bucket) []ClientOption {
	return []ClientOption{
		WithMaxBatchSize(
			config.AsIntDefault(cfg, "EVENTHUB_MAX_BATCH_SIZE", 0),
		),
		WithMaxConsecutiveFailures(
			config.AsIntDefault(cfg, "EVENTHUB_MAX_CONSECUTIVE_FAILURES", 0),
		),
		WithConcurrencyLimit(
			config.AsUintDefault(cfg, "EVENTHUB_CONCURRENCY_LIMIT", 0),
		),
	}
}
