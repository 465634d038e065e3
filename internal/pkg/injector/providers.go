package injector

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Garacc/stock-agent-cn/internal/ai/clientmgr"
	"github.com/Garacc/stock-agent-cn/internal/ai/metrics"
	"github.com/Garacc/stock-agent-cn/internal/ai/orchestrator"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/factory"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/registry"
	"github.com/Garacc/stock-agent-cn/internal/completion/service"
	"github.com/Garacc/stock-agent-cn/internal/conf"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
	"github.com/Garacc/stock-agent-cn/internal/server"
)

// ProviderSet is the Wire provider set for all dependencies
var ProviderSet = wire.NewSet(
	metricsProviderSet,
	llmProviderSet,
	serverProviderSet,
)

var metricsProviderSet = wire.NewSet(
	provideMetricsRegistry,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
	metrics.NewCollector,
)

var llmProviderSet = wire.NewSet(
	provideRegistry,
	provideClientManager,
	wire.Bind(new(orchestrator.Resolver), new(*clientmgr.Manager)),
	wire.Bind(new(service.CacheInspector), new(*clientmgr.Manager)),
	provideOrchestrator,
	wire.Bind(new(service.Completer), new(*orchestrator.Orchestrator)),
)

var serverProviderSet = wire.NewSet(
	provideCompletionService,
	server.NewHTTPServer,
)

func provideMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideRegistry(config *conf.Config) (*registry.Registry, error) {
	specs, err := config.LLM.ProviderSpecs()
	if err != nil {
		return nil, err
	}
	return factory.NewRegistry(specs, config.LLM.ProviderOptions()...)
}

func provideClientManager(reg *registry.Registry, log *logger.Logger) (*clientmgr.Manager, func()) {
	m := clientmgr.New(reg, clientmgr.WithLogger(log))
	cleanup := func() {
		if err := m.Close(); err != nil {
			log.Warn("failed to close provider clients", zap.Error(err))
		}
	}
	return m, cleanup
}

func provideOrchestrator(
	resolver orchestrator.Resolver,
	collector *metrics.Collector,
	config *conf.Config,
	log *logger.Logger,
) *orchestrator.Orchestrator {
	return orchestrator.New(resolver,
		orchestrator.WithObserver(collector),
		orchestrator.WithLogger(log),
		orchestrator.WithDefaultModels(config.LLM.DefaultModels...),
		orchestrator.WithTimeout(config.LLM.RequestTimeout),
	)
}

func provideCompletionService(
	completer service.Completer,
	reg *registry.Registry,
	pool service.CacheInspector,
	config *conf.Config,
	log *logger.Logger,
) *service.CompletionService {
	return service.NewCompletionService(completer, reg, pool,
		config.LLM.CompletionDefaults(), config.LLM.DefaultModels, log)
}
