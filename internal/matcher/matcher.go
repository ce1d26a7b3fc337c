package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"

	"talent-match-go/internal/constants"
	"talent-match-go/internal/logger"
	"talent-match-go/internal/normalizer"
	"talent-match-go/internal/tracing"
	"talent-match-go/internal/types"
)

// Matcher 匹配管线驱动器
// 数据流: Normalizer -> PromptBuilder -> CompletionClient -> ResponseParser -> RankAggregator
// 管线本身无持久状态，每次调用都是无状态的请求/响应
type Matcher struct {
	llmModel model.ToolCallingChatModel
	builder  *PromptBuilder
	parser   *ResponseParser
	agg      *RankAggregator

	batchSize        int
	batchConcurrency int
	scoreCutoff      int
}

// Option 定义 Matcher 的配置选项
type Option func(*Matcher)

// WithBatchSize 设置单次LLM调用携带的候选人数上限
func WithBatchSize(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithBatchConcurrency 设置批次并发上限
func WithBatchConcurrency(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.batchConcurrency = n
		}
	}
}

// WithScoreCutoff 设置分数截断阈值
// 该阈值同时写入Prompt（模型侧筛选）并由聚合器兜底过滤（见 DESIGN.md）
func WithScoreCutoff(cutoff int) Option {
	return func(m *Matcher) {
		if cutoff > 0 && cutoff <= 100 {
			m.scoreCutoff = cutoff
		}
	}
}

// WithLegacyTextFallback 打开已废弃的 SCORE:/REASON: 文本格式兜底解析
func WithLegacyTextFallback(allow bool) Option {
	return func(m *Matcher) {
		m.parser = NewResponseParser(allow)
	}
}

// NewMatcher 创建匹配管线驱动器
func NewMatcher(llmModel model.ToolCallingChatModel, options ...Option) (*Matcher, error) {
	if llmModel == nil {
		return nil, fmt.Errorf("LLM模型不能为空")
	}

	m := &Matcher{
		llmModel:         llmModel,
		parser:           NewResponseParser(false),
		agg:              NewRankAggregator(),
		batchSize:        constants.DefaultBatchSize,
		batchConcurrency: constants.DefaultBatchConcurrency,
		scoreCutoff:      constants.DefaultScoreCutoff,
	}
	for _, opt := range options {
		opt(m)
	}
	m.builder = NewPromptBuilder(m.scoreCutoff)

	return m, nil
}

// MatchCandidates 为一个岗位评估一批候选人
// 空候选人列表直接返回空结果，不发起LLM调用
// 候选人按批次切分并在有界并发池中评估，结果合并后全局排序
// 补全/解析失败中止整个调用并向上传播，绝不返回部分或伪造的结果
func (m *Matcher) MatchCandidates(ctx context.Context, job *types.JobPosting, candidates []*types.CandidateProfile, opts AggregateOptions) ([]types.MatchResult, error) {
	if job == nil {
		return nil, &MatchError{Op: "validate", BaseErr: ErrValidationFailed, Detail: "岗位信息为空"}
	}
	if len(candidates) == 0 {
		return []types.MatchResult{}, nil
	}

	batches := splitCandidates(candidates, m.batchSize)
	logger.Ctx(ctx).Info().
		Str("job_id", job.ID).
		Int("candidate_count", len(candidates)).
		Int("batch_count", len(batches)).
		Msg("开始候选人匹配")

	scored, err := m.runBatches(ctx, job.ID, len(batches), func(ctx context.Context, i int) ([]ScoredCandidate, error) {
		messages, err := m.builder.BuildCandidateMatch(job, batches[i])
		if err != nil {
			return nil, &MatchError{JobID: job.ID, Op: "build_prompt", BaseErr: ErrValidationFailed, Detail: err.Error()}
		}
		logger.Ctx(ctx).Debug().
			Str("job_id", job.ID).
			Int("batch_index", i).
			Str("prompt_preview", tracing.TruncateString(messages[len(messages)-1].Content, tracing.MaxPromptLength)).
			Msg("匹配Prompt构建完成")
		resp, err := m.llmModel.Generate(ctx, messages)
		if err != nil {
			return nil, wrapGenerateError(ctx, job.ID, err)
		}
		return m.parser.Parse(resp.Content)
	})
	if err != nil {
		return nil, err
	}

	if opts.ScoreCutoff <= 0 {
		opts.ScoreCutoff = m.scoreCutoff
	}
	return m.agg.AggregateCandidates(candidates, scored, opts), nil
}

// MatchJobs 为一个候选人评估一批岗位（MatchCandidates 的对偶）
func (m *Matcher) MatchJobs(ctx context.Context, profile *types.CandidateProfile, jobs []*types.JobPosting, opts AggregateOptions) ([]types.MatchResult, error) {
	if profile == nil {
		return nil, &MatchError{Op: "validate", BaseErr: ErrValidationFailed, Detail: "候选人画像为空"}
	}
	if len(jobs) == 0 {
		return []types.MatchResult{}, nil
	}

	batches := splitJobs(jobs, m.batchSize)
	logger.Ctx(ctx).Info().
		Str("candidate_id", profile.ID).
		Int("job_count", len(jobs)).
		Int("batch_count", len(batches)).
		Msg("开始岗位匹配")

	scored, err := m.runBatches(ctx, profile.ID, len(batches), func(ctx context.Context, i int) ([]ScoredCandidate, error) {
		messages, err := m.builder.BuildJobSearch(profile, batches[i])
		if err != nil {
			return nil, &MatchError{Op: "build_prompt", BaseErr: ErrValidationFailed, Detail: err.Error()}
		}
		resp, err := m.llmModel.Generate(ctx, messages)
		if err != nil {
			return nil, wrapGenerateError(ctx, "", err)
		}
		return m.parser.Parse(resp.Content)
	})
	if err != nil {
		return nil, err
	}

	if opts.ScoreCutoff <= 0 {
		opts.ScoreCutoff = m.scoreCutoff
	}
	return m.agg.AggregateJobs(jobs, scored, opts), nil
}

// MatchCandidateRecords 接受未规范化的原始记录
// 单个候选人记录校验失败跳过并告警，不中止整个批次；岗位记录非法则中止
func (m *Matcher) MatchCandidateRecords(ctx context.Context, jobRecord map[string]any, candidateRecords []map[string]any, opts AggregateOptions) ([]types.MatchResult, error) {
	job, err := normalizer.NormalizeJob(jobRecord)
	if err != nil {
		return nil, &MatchError{Op: "normalize_job", BaseErr: ErrValidationFailed, Detail: err.Error()}
	}

	candidates := make([]*types.CandidateProfile, 0, len(candidateRecords))
	for i, record := range candidateRecords {
		profile, err := normalizer.NormalizeCandidate(record)
		if err != nil {
			logger.Ctx(ctx).Warn().
				Err(err).
				Int("index", i).
				Str("job_id", job.ID).
				Msg("候选人记录校验失败，跳过")
			continue
		}
		candidates = append(candidates, profile)
	}

	return m.MatchCandidates(ctx, job, candidates, opts)
}

// runBatches 在有界并发池中执行批次，任一批次失败立即取消其余批次
func (m *Matcher) runBatches(ctx context.Context, subjectID string, batchCount int, runOne func(ctx context.Context, i int) ([]ScoredCandidate, error)) ([]ScoredCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, &MatchError{JobID: subjectID, Op: "match", BaseErr: ErrCancelled, Detail: err.Error()}
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batchResult struct {
		index  int
		scored []ScoredCandidate
		err    error
	}

	sem := make(chan struct{}, m.batchConcurrency)
	resultCh := make(chan batchResult, batchCount)
	var wg sync.WaitGroup

	for i := 0; i < batchCount; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-batchCtx.Done():
				resultCh <- batchResult{index: index, err: batchCtx.Err()}
				return
			}

			scored, err := runOne(batchCtx, index)
			if err != nil {
				cancel() // 中止其余批次
			}
			resultCh <- batchResult{index: index, scored: scored, err: err}
		}(i)
	}

	wg.Wait()
	close(resultCh)

	// 按批次顺序合并，保证解析输出顺序确定
	ordered := make([][]ScoredCandidate, batchCount)
	var firstErr error
	for r := range resultCh {
		if r.err != nil {
			// 优先保留真实的业务错误而不是连带的取消错误
			if firstErr == nil || isCancellation(firstErr) && !isCancellation(r.err) {
				firstErr = r.err
			}
			continue
		}
		ordered[r.index] = r.scored
	}

	if firstErr != nil {
		if isCancellation(firstErr) {
			return nil, &MatchError{JobID: subjectID, Op: "match", BaseErr: ErrCancelled, Detail: firstErr.Error()}
		}
		return nil, firstErr
	}

	var merged []ScoredCandidate
	for _, batch := range ordered {
		merged = append(merged, batch...)
	}
	return merged, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrCancelled)
}

// wrapGenerateError 区分调用方取消与真正的上游失败
func wrapGenerateError(ctx context.Context, jobID string, err error) error {
	if ctx.Err() != nil {
		return &MatchError{JobID: jobID, Op: "completion", BaseErr: ErrCancelled, Detail: ctx.Err().Error()}
	}
	return NewCompletionError(jobID, "LLM调用失败", err)
}

// splitCandidates 将候选人列表按批次大小切分
func splitCandidates(candidates []*types.CandidateProfile, batchSize int) [][]*types.CandidateProfile {
	if batchSize <= 0 {
		batchSize = len(candidates)
	}
	var batches [][]*types.CandidateProfile
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batches = append(batches, candidates[start:end])
	}
	return batches
}

// splitJobs 将岗位列表按批次大小切分
func splitJobs(jobs []*types.JobPosting, batchSize int) [][]*types.JobPosting {
	if batchSize <= 0 {
		batchSize = len(jobs)
	}
	var batches [][]*types.JobPosting
	for start := 0; start < len(jobs); start += batchSize {
		end := start + batchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		batches = append(batches, jobs[start:end])
	}
	return batches
}
