// Package metrics provides ports.Metrics implementations.
package metrics

import (
	"time"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/ports"
)

// NoOpCollector discards everything. It is the default when metrics are disabled.
type NoOpCollector struct{}

var _ ports.Metrics = NoOpCollector{}

func (NoOpCollector) RecordChargeAttempt(string, string, time.Duration) {}
func (NoOpCollector) RecordThreeDSRetry(string, bool)                   {}
func (NoOpCollector) RecordCardUpload(string, bool)                     {}
func (NoOpCollector) RecordLookup(string, bool)                         {}
func (NoOpCollector) RecordStoreWriteRetry(string, string)              {}
func (NoOpCollector) RecordRepair(bool)                                 {}
func (NoOpCollector) RecordBreakerState(string, string)                 {}
