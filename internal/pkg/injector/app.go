package injector

import (
	"github.com/Garacc/stock-agent-cn/internal/conf"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
	"github.com/Garacc/stock-agent-cn/internal/server"
)

// App encapsulates all application dependencies
type App struct {
	Config     *conf.Config
	Logger     *logger.Logger
	HTTPServer *server.HTTPServer
}

func newApp(config *conf.Config, log *logger.Logger, httpServer *server.HTTPServer) *App {
	return &App{
		Config:     config,
		Logger:     log,
		HTTPServer: httpServer,
	}
}
