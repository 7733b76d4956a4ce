// Package resilience stops the pool from hammering shards that keep
// failing connection setup.
package resilience

import (
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()
