package ports

import "time"

// Metrics records operational counters for the transaction core.
type Metrics interface {
	RecordChargeAttempt(biller string, status string, duration time.Duration)
	RecordThreeDSRetry(biller string, withThreeD bool)
	RecordCardUpload(biller string, success bool)
	RecordLookup(biller string, authRequired bool)
	RecordStoreWriteRetry(collection string, code string)
	RecordRepair(success bool)
	RecordBreakerState(name string, state string)
}
