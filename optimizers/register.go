// Package optimizers provides implementations of splitnet.Optimizer
package optimizers

import (
	"sync"

	"github.com/pkg/errors"

	sn "github.com/sharnoff/splitnet"
)

var (
	mux      sync.RWMutex
	registry = make(map[string]func() sn.Optimizer)
)

// Register makes an Optimizer available through Get. It returns splitnet.ErrRegisterTaken if the
// type string is already in use.
func Register(typeString string, f func() sn.Optimizer) error {
	mux.Lock()
	defer mux.Unlock()

	if _, ok := registry[typeString]; ok {
		return errors.Wrapf(sn.ErrRegisterTaken, "Can't register optimizer %q", typeString)
	}

	registry[typeString] = f
	return nil
}

// Get returns a new Optimizer of the given type, with its default hyperparameters.
func Get(typeString string) (sn.Optimizer, error) {
	mux.RLock()
	f, ok := registry[typeString]
	mux.RUnlock()

	if !ok {
		return nil, errors.Wrapf(sn.ErrRegisterWrongType, "Optimizer %q", typeString)
	}

	return f(), nil
}

func init() {
	list := []func() sn.Optimizer{
		func() sn.Optimizer { return GradientDescent() },
		func() sn.Optimizer { return Adam() },
	}

	for _, f := range list {
		if err := Register(f().TypeString(), f); err != nil {
			panic(err.Error())
		}
	}
}
