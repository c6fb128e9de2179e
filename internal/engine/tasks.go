package engine

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/bahromoov/aytchi/internal/session"
)

const flushSchedule = "@every 8s"

// StartBackgroundTasks schedules the two always-on loops: the fact store
// flush and the session reaper. The returned scheduler keeps running until
// Stop is called on it.
func (e *Engine) StartBackgroundTasks() (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(flushSchedule, e.facts.FlushIfDirty); err != nil {
		return nil, fmt.Errorf("schedule flush: %w", err)
	}

	reapSchedule := fmt.Sprintf("@every %s", session.ReapInterval)
	if _, err := c.AddFunc(reapSchedule, func() {
		e.registry.Reap()
	}); err != nil {
		return nil, fmt.Errorf("schedule reaper: %w", err)
	}

	c.Start()
	log.Printf("[engine] background tasks started (flush %s, reap every %s)", flushSchedule, session.ReapInterval)
	return c, nil
}
