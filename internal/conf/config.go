package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/factory"
	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
	"github.com/Garacc/stock-agent-cn/internal/pkg/logger"
)

// EnvPrefix 环境变量覆盖配置项时使用的前缀，如 STOCKAGENT_LLM_MAX_RETRIES
const EnvPrefix = "STOCKAGENT"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	LLM    LLMConfig    `mapstructure:"llm"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format" validate:"oneof=json console"`
	Output           string        `mapstructure:"output" validate:"oneof=console file both"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// Logger 转换为 logger 包配置
func (c *LogConfig) Logger() *logger.Config {
	return &logger.Config{
		Level:            c.Level,
		Format:           c.Format,
		Output:           c.Output,
		EnableCaller:     c.EnableCaller,
		EnableStacktrace: c.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   c.File.Filename,
			MaxSize:    c.File.MaxSize,
			MaxAge:     c.File.MaxAge,
			MaxBackups: c.File.MaxBackups,
			Compress:   c.File.Compress,
		},
	}
}

// LLMConfig 补全编排配置
//
// 凭证与模型名不在此配置，首次使用时从 Provider 定义中的环境变量读取。
type LLMConfig struct {
	MaxRetries     int              `mapstructure:"max_retries" validate:"min=1"`
	InitialBackoff time.Duration    `mapstructure:"initial_backoff" validate:"gt=0"`
	RequestTimeout time.Duration    `mapstructure:"request_timeout" validate:"min=0"`
	ClientTimeout  time.Duration    `mapstructure:"client_timeout" validate:"min=0"`
	Temperature    float32          `mapstructure:"temperature" validate:"min=0,max=2"`
	TopP           float32          `mapstructure:"top_p" validate:"min=0,max=1"`
	DefaultModels  []string         `mapstructure:"default_models"`
	Providers      []ProviderConfig `mapstructure:"providers" validate:"dive"`
}

// ProviderConfig 追加到注册表的 Provider
type ProviderConfig struct {
	ID            string            `mapstructure:"id" validate:"required"`
	Family        string            `mapstructure:"family" validate:"required,oneof=openai google"`
	CredentialEnv string            `mapstructure:"credential_env" validate:"required"`
	ModelEnv      string            `mapstructure:"model_env"`
	DefaultModel  string            `mapstructure:"default_model" validate:"required"`
	BaseURL       string            `mapstructure:"base_url" validate:"omitempty,url"`
	Headers       map[string]string `mapstructure:"headers"`
}

// ProviderSpecs 转换为注册表 Spec
func (c *LLMConfig) ProviderSpecs() ([]factory.Spec, error) {
	specs := make([]factory.Spec, 0, len(c.Providers))
	for _, p := range c.Providers {
		family, err := types.ParseFamily(p.Family)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.ID, err)
		}
		specs = append(specs, factory.Spec{
			ID:            p.ID,
			Family:        family,
			CredentialEnv: p.CredentialEnv,
			ModelEnv:      p.ModelEnv,
			DefaultModel:  p.DefaultModel,
			BaseURL:       p.BaseURL,
			Headers:       p.Headers,
		})
	}
	return specs, nil
}

// ProviderOptions 所有 Provider 共用的客户端选项
func (c *LLMConfig) ProviderOptions() []factory.Option {
	return []factory.Option{
		factory.WithTimeout(c.ClientTimeout),
		factory.WithSampling(c.Temperature, c.TopP),
	}
}

// CompletionDefaults 请求未指定时使用的重试参数
func (c *LLMConfig) CompletionDefaults() types.CompletionRequest {
	return types.CompletionRequest{
		MaxRetries:     c.MaxRetries,
		InitialBackoff: c.InitialBackoff,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	def := logger.DefaultConfig()
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.format", def.Format)
	v.SetDefault("log.output", def.Output)
	v.SetDefault("log.enablecaller", def.EnableCaller)
	v.SetDefault("log.enablestacktrace", def.EnableStacktrace)
	v.SetDefault("log.file.filename", def.File.Filename)
	v.SetDefault("log.file.maxsize", def.File.MaxSize)
	v.SetDefault("log.file.maxage", def.File.MaxAge)
	v.SetDefault("log.file.maxbackups", def.File.MaxBackups)
	v.SetDefault("log.file.compress", def.File.Compress)

	v.SetDefault("llm.max_retries", types.DefaultMaxRetries)
	v.SetDefault("llm.initial_backoff", types.DefaultInitialBackoff)
	v.SetDefault("llm.request_timeout", time.Duration(0))
	v.SetDefault("llm.client_timeout", 60*time.Second)
	v.SetDefault("llm.temperature", types.DefaultTemperature)
	v.SetDefault("llm.top_p", types.DefaultTopP)
	v.SetDefault("llm.default_models", []string{})
}

// LoadEnv 加载 .env 文件到进程环境，文件不存在时忽略
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Overload(file); err != nil && !isNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// LoadConfig 读取配置文件
//
// path 为空或文件不存在时只使用默认值与环境变量。
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Log.Logger().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]struct{}, len(c.LLM.Providers))
	for _, p := range c.LLM.Providers {
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("invalid config: duplicate provider %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
