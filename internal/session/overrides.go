package session

import (
	"go.uber.org/zap"

	"github.com/dori/tempo/internal/model"
)

// Overrides is the local entity id -> progress percent map. A value lives
// there from the moment the user moves the slider until the server confirms
// a value, which supersedes it.
type Overrides struct {
	store Store
	log   *zap.Logger
}

// Lookup returns the local percent for id
func (o *Overrides) Lookup(id string) (int, bool) {
	pct, ok, err := o.store.GetProgressOverride(id)
	if err != nil {
		o.log.Warn("reading progress override failed", zap.String("id", id), zap.Error(err))
		return 0, false
	}
	return pct, ok
}

// Set stores a local percent for id
func (o *Overrides) Set(id string, pct int) error {
	return o.store.SetProgressOverride(id, model.ClampProgress(pct))
}

// Forget drops the local percent for id
func (o *Overrides) Forget(id string) error {
	return o.store.DeleteProgressOverride(id)
}

// All returns every stored override
func (o *Overrides) All() map[string]int {
	all, err := o.store.ProgressOverrides()
	if err != nil {
		o.log.Warn("reading progress overrides failed", zap.Error(err))
		return map[string]int{}
	}
	return all
}
