package mission

import (
	"github.com/indielance/cra/internal/mission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mission.service",
	fx.Provide(service.NewService),
)
