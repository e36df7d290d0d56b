package blocks

import (
	sn "github.com/sharnoff/splitnet"
)

func init() {
	list := []func() sn.Block{
		func() sn.Block { return new(sequential) },
	}

	if err := sn.RegisterAll(list); err != nil {
		panic(err.Error())
	}
}
