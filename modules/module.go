// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/zap/contract"
)

// Module binds a stateful precompile to its reserved address and config key.
type Module struct {
	// ConfigKey is the key used in json config files to specify this module.
	ConfigKey string
	// Address is the reserved address this precompile executes at.
	Address common.Address
	// Contract executes calls routed to Address.
	Contract contract.StatefulPrecompiledContract
	// Configurator applies the module's parsed config at activation.
	Configurator contract.Configurator
}

type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }

func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
