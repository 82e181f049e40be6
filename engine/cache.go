package engine

import (
	"encoding/json"
	"sync"
	"time"
)

// buildSlot is the per-function_id single-flight build in progress.
// Any caller that misses the cache while a build for the same function
// is underway waits on this slot instead of starting a second one.
type buildSlot struct {
	done         chan struct{}
	deploymentID string
	isolate      *Isolate
	err          error
}

// Cache maps deployment_id to a warm Isolate, with at most one live
// Isolate retained per function_id at a time. Builds are single-flight
// per function_id; a successful build atomically evicts and destroys
// whatever Isolate was previously warm for that function.
type Cache struct {
	host    *Host
	cfg     Config
	metrics *Metrics

	mu            sync.Mutex
	isolates      map[string]*Isolate // deployment_id -> Isolate
	liveByFunc    map[string]string   // function_id -> deployment_id currently warm

	slotsMu sync.Mutex
	slots   map[string]*buildSlot // function_id -> in-progress build
}

// NewCache builds an empty Isolate cache bound to host and cfg. metrics
// may be nil, in which case cache events go to a private Metrics that
// is not exposed anywhere.
func NewCache(host *Host, cfg Config, metrics *Metrics) *Cache {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Cache{
		host:       host,
		cfg:        cfg,
		metrics:    metrics,
		isolates:   make(map[string]*Isolate),
		liveByFunc: make(map[string]string),
		slots:      make(map[string]*buildSlot),
	}
}

// GetOrBuild returns the warm Isolate for deploymentID, building it from
// source on miss. Concurrent misses for the same functionID collapse
// into a single build.
func (c *Cache) GetOrBuild(functionID, deploymentID, source string) (*Isolate, error) {
	if err := c.host.requireInitialized(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if iso, ok := c.isolates[deploymentID]; ok && !iso.Unusable() {
		c.mu.Unlock()
		c.metrics.recordCacheHit()
		return iso, nil
	}
	c.mu.Unlock()
	c.metrics.recordCacheMiss()

	return c.buildOrJoin(functionID, deploymentID, source)
}

func (c *Cache) buildOrJoin(functionID, deploymentID, source string) (*Isolate, error) {
	c.slotsMu.Lock()
	if slot, ok := c.slots[functionID]; ok {
		c.slotsMu.Unlock()
		c.metrics.recordSingleflight()
		<-slot.done
		if slot.deploymentID == deploymentID {
			return slot.isolate, slot.err
		}
		// The in-progress build was for a different deployment of this
		// function (a redeploy raced us). Re-check the cache: it may
		// already hold deploymentID, or we may need to build it.
		c.mu.Lock()
		if iso, ok := c.isolates[deploymentID]; ok {
			c.mu.Unlock()
			return iso, nil
		}
		c.mu.Unlock()
		return c.buildOrJoin(functionID, deploymentID, source)
	}

	slot := &buildSlot{done: make(chan struct{}), deploymentID: deploymentID}
	c.slots[functionID] = slot
	c.slotsMu.Unlock()

	iso, err := newIsolate(deploymentID, source, c.cfg)
	c.metrics.recordBuild()

	if err == nil {
		c.publish(functionID, deploymentID, iso)
	}

	slot.isolate = iso
	slot.err = err
	close(slot.done)

	c.slotsMu.Lock()
	delete(c.slots, functionID)
	c.slotsMu.Unlock()

	return iso, err
}

// publish installs a newly built Isolate as the one live Isolate for
// functionID, evicting and destroying whatever was there before.
func (c *Cache) publish(functionID, deploymentID string, iso *Isolate) {
	c.mu.Lock()
	prevDeploymentID, hadPrev := c.liveByFunc[functionID]
	var prev *Isolate
	if hadPrev {
		prev = c.isolates[prevDeploymentID]
		delete(c.isolates, prevDeploymentID)
	}
	c.isolates[deploymentID] = iso
	c.liveByFunc[functionID] = deploymentID
	c.mu.Unlock()

	if prev != nil {
		c.metrics.recordEviction()
		prev.mu.Lock()
		prev.Close()
		prev.mu.Unlock()
	}
}

// InvokeFunction is get_or_build followed by a single Invoke, returning
// the result JSON or surfacing the error.
func (c *Cache) InvokeFunction(functionID, deploymentID, source string, payload json.RawMessage) (json.RawMessage, error) {
	start := time.Now()
	iso, err := c.GetOrBuild(functionID, deploymentID, source)
	if err != nil {
		c.metrics.observe(outcomeFor(err), time.Since(start).Seconds())
		return nil, err
	}

	result, err := iso.Invoke(payload)
	c.metrics.observe(outcomeFor(err), time.Since(start).Seconds())
	return result, err
}

// Evict destroys the warm Isolate for functionID, if any, without
// building a replacement.
func (c *Cache) Evict(functionID string) {
	c.mu.Lock()
	deploymentID, ok := c.liveByFunc[functionID]
	var iso *Isolate
	if ok {
		iso = c.isolates[deploymentID]
		delete(c.isolates, deploymentID)
		delete(c.liveByFunc, functionID)
	}
	c.mu.Unlock()

	if iso != nil {
		c.metrics.recordEviction()
		iso.mu.Lock()
		iso.Close()
		iso.mu.Unlock()
	}
}

// Shutdown destroys every cached Isolate. Called once at process exit.
func (c *Cache) Shutdown() {
	c.mu.Lock()
	isolates := make([]*Isolate, 0, len(c.isolates))
	for _, iso := range c.isolates {
		isolates = append(isolates, iso)
	}
	c.isolates = make(map[string]*Isolate)
	c.liveByFunc = make(map[string]string)
	c.mu.Unlock()

	for _, iso := range isolates {
		iso.mu.Lock()
		iso.Close()
		iso.mu.Unlock()
	}
}
