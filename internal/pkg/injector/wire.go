//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"

	"github.com/Garacc/stock-agent-cn/internal/conf"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
)

// InitializeApp initializes the application with Wire
func InitializeApp(config *conf.Config, log *logger.Logger) (*App, func(), error) {
	wire.Build(ProviderSet, newApp)
	return nil, nil, nil
}
