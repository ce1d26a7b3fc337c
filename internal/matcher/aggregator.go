package matcher

import (
	"sort"

	"talent-match-go/internal/types"
)

// SortDirection 排序方向
type SortDirection int

const (
	SortDescending SortDirection = iota // 默认: 高分在前
	SortAscending
)

// AggregateOptions 聚合阶段的选项
type AggregateOptions struct {
	Direction   SortDirection
	ScoreCutoff int // 硬过滤阈值，<=0 表示不过滤

	// 基于规范化枚举字段的后置过滤，绝不对自由文本摘要做子串匹配
	OnlyAvailableNow bool
	OnlyRemote       bool
}

// RankAggregator 将解析后的评分与原始记录按id连接并排序过滤
// 纯函数：不修改任何输入，也不产生副作用
type RankAggregator struct{}

// NewRankAggregator 创建聚合器
func NewRankAggregator() *RankAggregator {
	return &RankAggregator{}
}

// AggregateCandidates 聚合"岗位找人"的结果
// 未知id（不在输入候选人集合中的）被丢弃；未被评分的候选人不出现在结果中
func (a *RankAggregator) AggregateCandidates(candidates []*types.CandidateProfile, scored []ScoredCandidate, opts AggregateOptions) []types.MatchResult {
	byID := make(map[string]*types.CandidateProfile, len(candidates))
	for _, c := range candidates {
		if c != nil {
			byID[c.ID] = c
		}
	}

	results := make([]types.MatchResult, 0, len(scored))
	for _, s := range scored {
		profile, ok := byID[s.CandidateID]
		if !ok {
			continue // 模型编造的id直接丢弃
		}
		if opts.ScoreCutoff > 0 && s.Score < opts.ScoreCutoff {
			continue
		}
		if opts.OnlyAvailableNow && profile.Availability != types.AvailabilityImmediate {
			continue
		}
		if opts.OnlyRemote && profile.WorkPreference != types.WorkPreferenceRemote &&
			profile.WorkPreference != types.WorkPreferenceHybrid {
			continue
		}

		reasons := s.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		results = append(results, types.MatchResult{
			CandidateID: s.CandidateID,
			Score:       s.Score,
			Reasons:     reasons,
		})
	}

	sortResults(results, opts.Direction)
	return results
}

// AggregateJobs 聚合"人找岗位"的结果（对偶操作，结果中的id为岗位id）
func (a *RankAggregator) AggregateJobs(jobs []*types.JobPosting, scored []ScoredCandidate, opts AggregateOptions) []types.MatchResult {
	byID := make(map[string]*types.JobPosting, len(jobs))
	for _, j := range jobs {
		if j != nil {
			byID[j.ID] = j
		}
	}

	results := make([]types.MatchResult, 0, len(scored))
	for _, s := range scored {
		if _, ok := byID[s.CandidateID]; !ok {
			continue
		}
		if opts.ScoreCutoff > 0 && s.Score < opts.ScoreCutoff {
			continue
		}

		reasons := s.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		results = append(results, types.MatchResult{
			CandidateID: s.CandidateID,
			Score:       s.Score,
			Reasons:     reasons,
		})
	}

	sortResults(results, opts.Direction)
	return results
}

// sortResults 稳定排序，同分时按id字典序保证跨调用确定性
func sortResults(results []types.MatchResult, direction SortDirection) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			if direction == SortAscending {
				return results[i].Score < results[j].Score
			}
			return results[i].Score > results[j].Score
		}
		return results[i].CandidateID < results[j].CandidateID
	})
}
