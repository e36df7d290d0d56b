package splitnet

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	registryMux sync.RWMutex
	blockTypes  = make(map[string]func() Block)
)

// RegisterBlock registers a Block constructor under its type string, so that saved Networks can be
// loaded. Subpackages register their Blocks in init(). RegisterBlock returns ErrRegisterTaken if
// the name is already in use, or ErrRegisterNilReturn if the constructor returns nil.
func RegisterBlock(typeString string, f func() Block) error {
	if f == nil {
		return NilArgError{"Block constructor"}
	} else if f() == nil {
		return ErrRegisterNilReturn
	}

	registryMux.Lock()
	defer registryMux.Unlock()

	if _, ok := blockTypes[typeString]; ok {
		return errors.Wrapf(ErrRegisterTaken, "Can't register Block %q", typeString)
	}

	blockTypes[typeString] = f
	return nil
}

// RegisterAll registers every constructor in the list under its own type string.
func RegisterAll(list []func() Block) error {
	for _, f := range list {
		if f == nil {
			return NilArgError{"Block constructor"}
		}

		b := f()
		if b == nil {
			return ErrRegisterNilReturn
		}

		if err := RegisterBlock(b.TypeString(), f); err != nil {
			return err
		}
	}

	return nil
}

// newBlock returns a blank Block of the given type
func newBlock(typeString string) (Block, error) {
	registryMux.RLock()
	f, ok := blockTypes[typeString]
	registryMux.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrRegisterWrongType, "Block type %q", typeString)
	}

	return f(), nil
}

var penaltyTypes = make(map[string]func() Penalty)

// RegisterPenalty registers a Penalty constructor under its type string, so that the Penalty of a
// saved Network can be restored by Load. The constructed Penalty must implement Marshaler.
func RegisterPenalty(typeString string, f func() Penalty) error {
	if f == nil {
		return NilArgError{"Penalty constructor"}
	}

	p := f()
	if p == nil {
		return ErrRegisterNilReturn
	} else if _, ok := p.(Marshaler); !ok {
		return errors.Errorf("Can't register Penalty %q, it does not implement Marshaler", typeString)
	}

	registryMux.Lock()
	defer registryMux.Unlock()

	if _, ok := penaltyTypes[typeString]; ok {
		return errors.Wrapf(ErrRegisterTaken, "Can't register Penalty %q", typeString)
	}

	penaltyTypes[typeString] = f
	return nil
}

// newPenalty returns a blank Penalty of the given type
func newPenalty(typeString string) (Penalty, error) {
	registryMux.RLock()
	f, ok := penaltyTypes[typeString]
	registryMux.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrRegisterWrongType, "Penalty type %q", typeString)
	}

	return f(), nil
}
