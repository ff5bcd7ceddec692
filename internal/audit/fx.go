package audit

import (
	"go.uber.org/fx"

	"github.com/indielance/cra/internal/audit/repository"
	"github.com/indielance/cra/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
