package app

import (
	"github.com/vk/compreg/internal/registry"
	"github.com/vk/compreg/modules/core"
	"github.com/vk/compreg/modules/render"
)

// coreModules is the definitive list of all component modules compiled into
// the compreg binary.
var coreModules = []registry.Module{
	&core.Module{},
	&render.Module{},
}
