// AngelaMos | 2026
// plancache.go

package jobs

import (
	"context"
	"sync"
)

// planCache memoizes plan names for one notifier run.
type planCache struct {
	plans PlanLookup
	mu    sync.Mutex
	names map[string]string
}

func newPlanCache(plans PlanLookup) *planCache {
	return &planCache{plans: plans, names: map[string]string{}}
}

func (c *planCache) name(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	name, ok := c.names[id]
	c.mu.Unlock()
	if ok {
		return name, nil
	}

	p, err := c.plans.Get(ctx, id)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.names[id] = p.Name
	c.mu.Unlock()
	return p.Name, nil
}
