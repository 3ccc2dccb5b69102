// Package checker re-evaluates every task against the clock: once a minute in
// the background and once synchronously at the tail of each user action.
package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"taskwatch/domain"
	"taskwatch/notify"
)

// Storage lists the task snapshot a pass evaluates.
type Storage interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
}

// Broadcaster fans an alert out to live subscribers.
type Broadcaster interface {
	Broadcast(a domain.Alert)
}

// Checker owns the recurring deadline evaluation. The background loop runs
// until process exit; there is no cancellation path in production.
type Checker struct {
	store   Storage
	sink    notify.Sink
	stream  Broadcaster
	metrics *passMetrics

	interval time.Duration
	now      func() time.Time

	once sync.Once
	stop chan struct{}
}

// New builds a Checker. reg receives the pass metrics; pass
// prometheus.DefaultRegisterer outside tests.
func New(store Storage, sink notify.Sink, stream Broadcaster, reg prometheus.Registerer) *Checker {
	return &Checker{
		store:    store,
		sink:     sink,
		stream:   stream,
		metrics:  newPassMetrics(reg),
		interval: time.Minute,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start launches the background loop. Calling Start again is a no-op.
func (c *Checker) Start() {
	c.once.Do(func() {
		log.WithField("interval", c.interval).Info("deadline checker started")
		go c.loop()
	})
}

func (c *Checker) loop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.RunPass(context.Background()); err != nil {
				log.WithError(err).Error("deadline pass failed")
			}
		case <-c.stop:
			return
		}
	}
}

// halt ends the background loop; tests only.
func (c *Checker) halt() {
	close(c.stop)
}

// RunPass evaluates the current snapshot once and delivers an alert for every
// condition that holds. Delivery failures are logged and skipped so the rest
// of the snapshot still alerts; a failed snapshot read abandons the pass.
func (c *Checker) RunPass(ctx context.Context) error {
	start := c.now()
	tasks, err := c.store.ListTasks(ctx)
	if err != nil {
		c.metrics.PassFailed()
		return fmt.Errorf("list tasks: %w", err)
	}

	alerts := domain.Evaluate(tasks, c.now())
	for _, a := range alerts {
		if err := c.sink.Notify(ctx, a.Title, a.Message, notify.DefaultTimeout); err != nil {
			c.metrics.DeliveryFailed()
			log.WithError(err).WithFields(log.Fields{"task": a.TaskID, "kind": a.Kind}).Warn("alert delivery failed")
		}
		if c.stream != nil {
			c.stream.Broadcast(a)
		}
	}

	c.metrics.PassDone(alerts, c.now().Sub(start))
	log.WithFields(log.Fields{"tasks": len(tasks), "alerts": len(alerts)}).Debug("deadline pass complete")
	return nil
}
