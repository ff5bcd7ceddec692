// Package cra wires the lifecycle engine's components into one fx module.
package cra

import (
	"go.uber.org/fx"

	"github.com/indielance/cra/internal/cra/access"
	"github.com/indielance/cra/internal/cra/service"
	"github.com/indielance/cra/internal/cra/validation"
)

var Module = fx.Options(
	access.Module,
	validation.Module,
	service.Module,
)
