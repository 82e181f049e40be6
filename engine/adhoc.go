package engine

import (
	"encoding/json"
	"time"
)

// CompileAndInvokeSource builds an anonymous, throwaway Isolate from
// source, runs a single Invoke against payload, and destroys the
// Isolate before returning. It never touches the cache and has no
// effect on any cached function's warm state.
func CompileAndInvokeSource(host *Host, cfg Config, metrics *Metrics, source string, payload json.RawMessage) (json.RawMessage, error) {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if err := host.requireInitialized(); err != nil {
		return nil, err
	}

	start := time.Now()
	iso, err := newIsolate("adhoc", source, cfg)
	if err != nil {
		metrics.observe(outcomeFor(err), time.Since(start).Seconds())
		return nil, err
	}
	defer iso.Close()

	result, err := iso.Invoke(payload)
	metrics.observe(outcomeFor(err), time.Since(start).Seconds())
	return result, err
}
