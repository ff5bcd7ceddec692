package seed

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/indielance/cra/internal/config"
)

var Module = fx.Module("seed",
	fx.Invoke(func(conn *gorm.DB, node *snowflake.Node, cfg config.Config, log *zap.Logger) error {
		if !cfg.SeedDemoData {
			return nil
		}
		return EnsureDemoData(conn, node, log.Named("seed"))
	}),
)
