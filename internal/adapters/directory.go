package adapters

import (
	"context"
	"errors"
	"sync"

	"github.com/apiguardian/apiguardian/internal/services/project"
	"github.com/apiguardian/apiguardian/pkg/gateway"
)

// ServiceDirectory implements gateway.Directory on top of the project
// service. Lookups are cached in-process; the cache is flushed whenever
// the pubsub layer reports a change to the projects table, so key
// revocations and secret rotations take effect across instances without a
// restart.
type ServiceDirectory struct {
	projects *project.ProjectService

	mu    sync.RWMutex
	cache map[string]*gateway.ProjectRecord
}

// NewServiceDirectory creates a directory backed by the project service.
func NewServiceDirectory(projects *project.ProjectService) *ServiceDirectory {
	return &ServiceDirectory{
		projects: projects,
		cache:    map[string]*gateway.ProjectRecord{},
	}
}

func (d *ServiceDirectory) FindByGatewayKey(ctx context.Context, key string) (*gateway.ProjectRecord, error) {
	d.mu.RLock()
	record, ok := d.cache[key]
	d.mu.RUnlock()
	if ok {
		return record, nil
	}

	p, err := d.projects.GetByGatewayKey(ctx, key)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return nil, gateway.ErrKeyNotFound
		}
		return nil, err
	}

	limits := make([]gateway.RateLimit, 0, len(p.RateLimits))
	for _, rl := range p.RateLimits {
		limits = append(limits, gateway.RateLimit{Unit: rl.Unit, Limit: rl.Limit})
	}

	record = &gateway.ProjectRecord{
		ID:              p.ID,
		OwnerID:         p.OwnerID,
		EncryptedSecret: p.EncryptedSecret,
		MonthlyBudget:   p.MonthlyBudget,
		RateLimits:      limits,
	}

	d.mu.Lock()
	d.cache[key] = record
	d.mu.Unlock()

	return record, nil
}

// Invalidate flushes the lookup cache. Wired to project change
// notifications; a full flush is cheap because the cache refills on demand.
func (d *ServiceDirectory) Invalidate() {
	d.mu.Lock()
	d.cache = map[string]*gateway.ProjectRecord{}
	d.mu.Unlock()
}
