package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"talent-match-go/internal/config"
	"talent-match-go/internal/constants"
	"talent-match-go/internal/llm"
	"talent-match-go/internal/logger"
	"talent-match-go/internal/matcher"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/tracing"
	"talent-match-go/internal/types"
	"talent-match-go/pkg/ratelimit"
)

// matchworker 消费 match.needed 消息并执行岗位级候选人评估
// 与HTTP服务分开部署，批量评估不占用在线请求容量
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
	logger.Logger = logger.Logger.With().Str("app", "matchworker").Logger()

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

	if storageManager.MySQL == nil || storageManager.RabbitMQ == nil {
		logger.Fatal().Msg("matchworker 需要 MySQL 与 RabbitMQ")
	}

	modelName := cfg.GetModelForTask(constants.TaskCandidateMatch)
	base, err := llm.NewOpenAIChatModel(cfg.LLM.APIKey, modelName, cfg.LLM.APIURL,
		llm.WithTemperature(cfg.Matcher.Temperature),
		llm.WithMaxTokens(cfg.Matcher.MaxTokens),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化匹配模型失败")
	}
	matchModel := ratelimit.NewLLMWithRateLimit(
		base,
		modelName,
		cfg.ModelQPMLimits,
		cfg.Matcher.QPM,
		cfg.Matcher.MaxRetries,
		time.Duration(cfg.Matcher.RetryWaitSeconds)*time.Second,
	)

	matchEngine, err := matcher.NewMatcher(matchModel,
		matcher.WithBatchSize(cfg.Matcher.BatchSize),
		matcher.WithBatchConcurrency(cfg.Matcher.BatchConcurrency),
		matcher.WithScoreCutoff(cfg.Matcher.ScoreCutoff),
		matcher.WithLegacyTextFallback(cfg.Matcher.AllowLegacyText),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化匹配管线失败")
	}

	mq := storageManager.RabbitMQ
	if err := mq.EnsureExchange(cfg.RabbitMQ.MatchEventsExchange, "direct", true); err != nil {
		logger.Fatal().Err(err).Msg("声明exchange失败")
	}
	if err := mq.EnsureQueue(cfg.RabbitMQ.MatchQueue, true); err != nil {
		logger.Fatal().Err(err).Msg("声明队列失败")
	}
	if err := mq.BindQueue(cfg.RabbitMQ.MatchQueue, cfg.RabbitMQ.MatchEventsExchange, cfg.RabbitMQ.MatchNeededRoutingKey); err != nil {
		logger.Fatal().Err(err).Msg("绑定队列失败")
	}

	w := &worker{
		cfg:     cfg,
		storage: storageManager,
		matcher: matchEngine,
	}

	workerCount := cfg.RabbitMQ.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	doneChans := make([]<-chan struct{}, 0, workerCount)
	for i := 0; i < workerCount; i++ {
		done, err := mq.StartConsumer(cfg.RabbitMQ.MatchQueue, cfg.RabbitMQ.PrefetchCount, w.handleMessage)
		if err != nil {
			logger.Fatal().Err(err).Msg("启动消费者失败")
		}
		doneChans = append(doneChans, done)
	}
	logger.Info().
		Int("workers", workerCount).
		Str("queue", cfg.RabbitMQ.MatchQueue).
		Msg("匹配消费者已启动")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	cancel()
	storageManager.Close()
	for _, done := range doneChans {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("关闭链路追踪失败")
	}
	logger.Info().Msg("优雅退出完成")
}

type worker struct {
	cfg     *config.Config
	storage *storage.Storage
	matcher *matcher.Matcher
}

// handleMessage 处理一条匹配需求消息
// 返回 true 表示ack；只有上游补全服务故障才nack重新入队
func (w *worker) handleMessage(body []byte) bool {
	var msg storage.MatchNeededMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.Error().Err(err).Msg("解析匹配消息失败，丢弃")
		return true
	}
	if msg.JobID == "" {
		logger.Error().Msg("匹配消息缺少job_id，丢弃")
		return true
	}

	timeout := config.GetDuration(w.cfg.Matcher.MatchTimeout, 60*time.Second)
	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), timeout)
	defer cancel()

	results, err := w.evaluateJob(ctx, &msg)
	if err != nil {
		logger.Error().Err(err).Str("job_id", msg.JobID).Msg("岗位评估失败")

		if errors.Is(err, matcher.ErrCompletionService) || errors.Is(err, matcher.ErrCancelled) {
			// 上游故障重新入队，限流代理已做过指数退避重试
			return false
		}

		if dbErr := w.storage.MySQL.MarkApplicationsFailed(context.Background(), msg.JobID, err.Error()); dbErr != nil {
			logger.Error().Err(dbErr).Str("job_id", msg.JobID).Msg("标记申请失败状态失败")
		}
		return true
	}

	scores := make(map[string]storage.ScorePayload, len(results))
	for _, r := range results {
		reasonsJSON, mErr := json.Marshal(r.Reasons)
		if mErr != nil {
			continue
		}
		scores[r.CandidateID] = storage.ScorePayload{Score: r.Score, ReasonsJSON: reasonsJSON}
	}
	if err := w.storage.MySQL.SaveMatchScores(ctx, msg.JobID, scores); err != nil {
		logger.Error().Err(err).Str("job_id", msg.JobID).Msg("持久化匹配分数失败")
		return false
	}

	logger.Info().
		Str("job_id", msg.JobID).
		Int("scored", len(results)).
		Str("triggered_by", msg.TriggeredBy).
		Msg("岗位评估完成")
	return true
}

// evaluateJob 加载岗位与候选人并执行匹配
func (w *worker) evaluateJob(ctx context.Context, msg *storage.MatchNeededMessage) ([]types.MatchResult, error) {
	jobModel, err := w.storage.MySQL.GetJobByID(ctx, msg.JobID)
	if err != nil {
		return nil, &matcher.MatchError{JobID: msg.JobID, Op: "load", BaseErr: matcher.ErrValidationFailed, Detail: err.Error()}
	}
	job, err := storage.JobToPosting(jobModel)
	if err != nil {
		return nil, err
	}

	var rows []models.Candidate
	if len(msg.CandidateIDs) > 0 {
		rows, err = w.storage.MySQL.ListCandidatesByIDs(ctx, msg.CandidateIDs)
	} else {
		rows, err = w.storage.MySQL.ListApplicantsForJob(ctx, msg.JobID)
	}
	if err != nil {
		return nil, &matcher.MatchError{JobID: msg.JobID, Op: "load", BaseErr: matcher.ErrValidationFailed, Detail: err.Error()}
	}

	candidates := make([]*types.CandidateProfile, 0, len(rows))
	for i := range rows {
		profile, convErr := storage.CandidateToProfile(&rows[i])
		if convErr != nil {
			logger.Ctx(ctx).Warn().
				Err(convErr).
				Str("candidate_id", rows[i].CandidateID).
				Msg("候选人记录转换失败，跳过")
			continue
		}
		candidates = append(candidates, profile)
	}

	return w.matcher.MatchCandidates(ctx, job, candidates, matcher.AggregateOptions{})
}
