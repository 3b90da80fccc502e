package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lhiwi/acis-insurance-project/internal/artifacts"
	"github.com/lhiwi/acis-insurance-project/internal/assembler"
	"github.com/lhiwi/acis-insurance-project/internal/config"
	"github.com/lhiwi/acis-insurance-project/internal/database"
	"github.com/lhiwi/acis-insurance-project/internal/executor"
	"github.com/lhiwi/acis-insurance-project/internal/explain"
	"github.com/lhiwi/acis-insurance-project/internal/inference"
	"github.com/lhiwi/acis-insurance-project/internal/llm"
	"github.com/lhiwi/acis-insurance-project/internal/llm/bedrock"
	"github.com/lhiwi/acis-insurance-project/internal/llm/gpt"
	"github.com/lhiwi/acis-insurance-project/internal/loader"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	red "github.com/lhiwi/acis-insurance-project/internal/redis"
	"github.com/lhiwi/acis-insurance-project/internal/schema"
	"github.com/lhiwi/acis-insurance-project/internal/scoring"
	"github.com/lhiwi/acis-insurance-project/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Config struct {
	ModelDir         string
	DeploymentMode   string
	Safeguards       bool
	ShowExplanations bool
	APIPort          string
	RedisAddr        string
	RedisPassword    string
	ResultTTL        time.Duration
	AWSRegion        string
	ClaudeModelID    string
	OpenAIKey        string
	OpenAIModelID    string
	LLMTimeout       time.Duration
	DB               database.Config
	LogLevel         string
}

type Dependencies struct {
	Executor *executor.Executor
	Service  *scoring.Service
	Pipeline *config.PipelineConfig
	Defaults models.ScoringOptions
	Redis    *redis.Client
	DB       *database.DB
	Logger   *zerolog.Logger
}

func LoadConfig() *Config {
	return &Config{
		ModelDir:         getEnv("MODEL_DIR", "models"),
		DeploymentMode:   getEnv("DEPLOYMENT_MODE", string(models.ModeValidation)),
		Safeguards:       getEnvBool("VALIDATION_SAFEGUARDS", true),
		ShowExplanations: getEnvBool("SHOW_EXPLANATIONS", false),
		APIPort:          getEnv("RISK_API_PORT", "18090"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		ResultTTL:        getEnvDuration("RESULT_TTL", store.DefaultTTL),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID:    getEnv("CLAUDE_MODEL_ID", ""),
		OpenAIKey:        getEnv("OPEN_AI_KEY", ""),
		OpenAIModelID:    getEnv("OPEN_AI_MODEL_ID", ""),
		LLMTimeout:       time.Duration(getEnvFloat("LLM_TIMEOUT_SECONDS", 30) * float64(time.Second)),
		DB: database.Config{
			Host:     getEnv("RISK_DB_HOST", ""),
			Port:     getEnv("RISK_DB_PORT", "5432"),
			User:     getEnv("RISK_DB_USER", ""),
			Password: getEnv("RISK_DB_PASSWORD", ""),
			Database: getEnv("RISK_DB_NAME", ""),
			SSLMode:  getEnv("RISK_DB_SSLMODE", "disable"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DefaultOptions are the scoring options used when a request leaves them
// out.
func (c *Config) DefaultOptions() (models.ScoringOptions, error) {
	mode, err := models.ParseDeploymentMode(c.DeploymentMode)
	if err != nil {
		return models.ScoringOptions{}, err
	}
	return models.ScoringOptions{
		Mode:             mode,
		Safeguards:       c.Safeguards,
		ShowExplanations: c.ShowExplanations,
	}, nil
}

// Wire builds the pipeline and the result store. Redis and Postgres are
// used only when REDIS_ADDR and RISK_DB_HOST are set.
func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	defaults, err := cfg.DefaultOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid DEPLOYMENT_MODE: %w", err)
	}

	pipelineCfg, err := config.LoadPipelineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	var narratorClient llm.Client
	if pipelineCfg.Explanation.Narrator.Enabled {
		narratorClient, err = createLLMClient(ctx, pipelineCfg.Explanation.Narrator.Provider, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", pipelineCfg.Explanation.Narrator.Provider, err)
		}
	}

	exec, err := NewExecutor(cfg.ModelDir, pipelineCfg, narratorClient, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Executor: exec,
		Pipeline: pipelineCfg,
		Defaults: defaults,
		Logger:   logger,
	}

	var results store.ResultStore
	if cfg.RedisAddr != "" {
		client, err := red.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, 3, logger)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
		results = store.NewRedisStore(client, cfg.ResultTTL, logger)
	} else {
		logger.Info().Dur("ttl", cfg.ResultTTL).Msg("REDIS_ADDR not set, keeping results in memory")
		results = store.NewMemoryStore(cfg.ResultTTL)
	}

	var runs scoring.RunRepository
	if cfg.DB.Enabled() {
		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			deps.Close()
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			deps.Close()
			return nil, err
		}
		deps.DB = db
		runs = db
	}

	deps.Service = scoring.NewService(exec, results, runs, logger)

	return deps, nil
}

// NewExecutor loads the model artifacts from modelDir and assembles the
// scoring pipeline. narratorClient may be nil.
func NewExecutor(modelDir string, pipelineCfg *config.PipelineConfig, narratorClient llm.Client, logger *zerolog.Logger) (*executor.Executor, error) {
	bundle, err := artifacts.Load(modelDir, pipelineCfg.Artifacts, logger)
	if err != nil {
		return nil, err
	}

	engine := inference.NewEngine(bundle, logger)

	var explainer executor.Explainer
	linear, err := explain.NewLinearExplainer(bundle.Classifier, pipelineCfg.Explanation.TopN, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Explanations disabled")
	} else {
		explainer = linear
	}

	var narrator executor.Narrator
	if narratorClient != nil {
		n, err := explain.NewNarrator(narratorClient, pipelineCfg.NarratorSettings(), logger)
		if err != nil {
			return nil, err
		}
		narrator = n
	}

	return executor.NewExecutor(
		loader.NewLoader(logger),
		schema.NewValidator(pipelineCfg.Validation.RowCap, logger),
		engine,
		assembler.NewAssembler(pipelineCfg.Output.PreviewRows, logger),
		explainer,
		narrator,
		pipelineCfg.Explanation.RecordIndex,
		logger,
	), nil
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		value = defaultValue
	}

	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}

	return value
}

func createLLMClient(ctx context.Context, provider string, cfg *Config) (llm.Client, error) {
	switch provider {
	case config.ProviderOpenAI:
		return gpt.NewClient(cfg.OpenAIKey, cfg.OpenAIModelID, cfg.LLMTimeout)
	default:
		return bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID)
	}
}
