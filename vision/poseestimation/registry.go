package poseestimation

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Constructor creates a strategy, fusing the IMU heading when useIMU is set.
type Constructor func(useIMU bool) Estimator

// Registration is a registered strategy.
type Registration struct {
	Constructor Constructor
	// RegistrarLoc is the file and line of the Register call.
	RegistrarLoc string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

// Register makes a strategy available under model. It panics on a duplicate model or a nil
// constructor.
func Register(model string, constructor Constructor) {
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for estimator %s", model))
	}
	reg := Registration{Constructor: constructor}
	if _, file, line, ok := runtime.Caller(1); ok {
		reg.RegistrarLoc = fmt.Sprintf("%s:%d", file, line)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if old, ok := registry[model]; ok {
		panic(errors.Errorf("trying to register two estimators with the same model %s (first at %s)", model, old.RegistrarLoc))
	}
	registry[model] = reg
}

// Lookup returns the registration for model, if any.
func Lookup(model string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[model]
	return reg, ok
}

// New builds the strategy registered under model.
func New(model string, useIMU bool) (Estimator, error) {
	reg, ok := Lookup(model)
	if !ok {
		return nil, errors.Errorf("unknown estimator model %q, have %v", model, Models())
	}
	return reg.Constructor(useIMU), nil
}

// Models lists the registered models in sorted order.
func Models() []string {
	registryMu.RLock()
	models := lo.Keys(registry)
	registryMu.RUnlock()
	slices.Sort(models)
	return models
}
