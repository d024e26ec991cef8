package audit

import (
	"context"
	"fmt"

	"github.com/darmiel/authnd/internal/config"
	"github.com/darmiel/authnd/internal/core"
)

// Build creates the auditor described by cfg. A disabled audit config yields a NoopAuditor.
func Build(ctx context.Context, cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "file":
		a, err := NewFileAuditor(cfg.Path)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "memory":
		return NewInMemoryAuditor(), nil
	case "redis":
		a, err := NewRedisAuditor(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "noop":
		return NewNoopAuditor(), nil
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
	}
}
