package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"talent-match-go/internal/api/handler"
	"talent-match-go/internal/api/router"
	"talent-match-go/internal/config"
	"talent-match-go/internal/constants"
	"talent-match-go/internal/generator"
	"talent-match-go/internal/llm"
	"talent-match-go/internal/logger"
	"talent-match-go/internal/matcher"
	"talent-match-go/internal/outbox"
	"talent-match-go/internal/parser"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/tracing"
	"talent-match-go/pkg/ratelimit"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	logger.Logger = logger.Logger.With().Str("app", "talent-match").Logger()
	glog.SetLogger(hertzadapter.From(logger.Logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitTracerProvider(ctx, &cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	storageManager, err := storage.NewStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	if err := requireStorageComponents(storageManager); err != nil {
		logger.Fatal().Err(err).Msg("存储组件未就绪")
	}
	defer storageManager.Close()

	matchModel, err := buildTaskModel(cfg, constants.TaskCandidateMatch, cfg.Matcher.Temperature, cfg.Matcher.MaxTokens, cfg.Matcher.QPM, cfg.Matcher.MaxRetries, cfg.Matcher.RetryWaitSeconds)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化匹配模型失败")
	}
	parseModel, err := buildTaskModel(cfg, constants.TaskResumeParse, cfg.ResumeParser.Temperature, cfg.ResumeParser.MaxTokens, cfg.ResumeParser.QPM, cfg.ResumeParser.MaxRetries, cfg.ResumeParser.RetryWaitSeconds)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化解析模型失败")
	}
	generateModel, err := buildTaskModel(cfg, constants.TaskJDGenerate, cfg.Generator.Temperature, cfg.Generator.MaxTokens, 0, 0, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化生成模型失败")
	}
	postModel, err := buildTaskModel(cfg, constants.TaskLinkedInPost, cfg.Generator.Temperature, cfg.Generator.MaxTokens, 0, 0, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化帖子生成模型失败")
	}

	matchEngine, err := matcher.NewMatcher(matchModel,
		matcher.WithBatchSize(cfg.Matcher.BatchSize),
		matcher.WithBatchConcurrency(cfg.Matcher.BatchConcurrency),
		matcher.WithScoreCutoff(cfg.Matcher.ScoreCutoff),
		matcher.WithLegacyTextFallback(cfg.Matcher.AllowLegacyText),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化匹配管线失败")
	}

	resumeExtractor, err := parser.NewResumeExtractor(parseModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历抽取器失败")
	}

	contentGenerator, err := generator.NewContentGenerator(generateModel,
		generator.WithLinkedInPostModel(postModel),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化内容生成器失败")
	}

	// 发件箱中继，将事务内写入的消息异步投递到RabbitMQ
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		if err := declareMatchTopology(cfg, storageManager.RabbitMQ); err != nil {
			logger.Fatal().Err(err).Msg("声明消息拓扑失败")
		}
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ)
		messageRelay.Start()
	}

	matchHandler := handler.NewMatchHandler(cfg, storageManager, matchEngine)
	resumeHandler := handler.NewResumeHandler(cfg, storageManager, resumeExtractor)
	generateHandler := handler.NewGenerateHandler(cfg, storageManager, contentGenerator)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		// 请求级上下文携带全局日志器，便于handler内结构化输出
		ctx.Next(logger.WithContext(c))
	})

	router.RegisterRoutes(h, cfg, matchHandler, resumeHandler, generateHandler)

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器启动")
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("关闭链路追踪失败")
	}
	logger.Info().Msg("优雅退出完成")
}

// requireStorageComponents 校验HTTP服务的必需存储组件
// MySQL与MinIO是各业务接口的硬依赖，缺失时启动即失败
// Redis与RabbitMQ缺失时缓存/锁与异步评估自动降级
func requireStorageComponents(st *storage.Storage) error {
	if st.MySQL == nil {
		return fmt.Errorf("MySQL未初始化")
	}
	if st.MinIO == nil {
		return fmt.Errorf("MinIO未初始化")
	}
	return nil
}

// buildTaskModel 按任务路由模型并套上限流重试代理
func buildTaskModel(cfg *config.Config, taskName string, temperature float64, maxTokens, qpm, maxRetries, retryWaitSeconds int) (model.ToolCallingChatModel, error) {
	modelName := cfg.GetModelForTask(taskName)

	base, err := llm.NewOpenAIChatModel(cfg.LLM.APIKey, modelName, cfg.LLM.APIURL,
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return nil, err
	}

	return ratelimit.NewLLMWithRateLimit(
		base,
		modelName,
		cfg.ModelQPMLimits,
		qpm,
		maxRetries,
		time.Duration(retryWaitSeconds)*time.Second,
	), nil
}

// declareMatchTopology 声明匹配事件的交换机、队列与绑定
func declareMatchTopology(cfg *config.Config, mq *storage.RabbitMQ) error {
	if err := mq.EnsureExchange(cfg.RabbitMQ.MatchEventsExchange, "direct", true); err != nil {
		return err
	}
	if err := mq.EnsureQueue(cfg.RabbitMQ.MatchQueue, true); err != nil {
		return err
	}
	return mq.BindQueue(cfg.RabbitMQ.MatchQueue, cfg.RabbitMQ.MatchEventsExchange, cfg.RabbitMQ.MatchNeededRoutingKey)
}
