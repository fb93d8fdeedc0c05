package tasks

import (
	"go.uber.org/zap"
)

type savedOverride struct {
	pct int
	ok  bool
}

// overrideSidecar rolls stored progress overrides back together with the
// task they belong to
type overrideSidecar struct {
	store OverrideStore
	log   *zap.Logger
}

func (s overrideSidecar) Capture(id string) any {
	pct, ok := s.store.Lookup(id)
	return savedOverride{pct: pct, ok: ok}
}

func (s overrideSidecar) Restore(id string, saved any) {
	prev, _ := saved.(savedOverride)
	var err error
	if prev.ok {
		err = s.store.Set(id, prev.pct)
	} else {
		err = s.store.Forget(id)
	}
	if err != nil {
		s.log.Warn("restoring progress override failed", zap.String("id", id), zap.Error(err))
	}
}

func (s overrideSidecar) Confirm(id string) {
	if err := s.store.Forget(id); err != nil {
		s.log.Warn("dropping progress override failed", zap.String("id", id), zap.Error(err))
	}
}
