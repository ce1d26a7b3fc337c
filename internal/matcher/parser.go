package matcher

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ScoredCandidate 解析后的单条评分记录（规范内部表示）
type ScoredCandidate struct {
	CandidateID string   `json:"id"`
	Score       int      `json:"score"`
	Reasons     []string `json:"reasons"`
}

// rawScoredEntry 接受模型输出中的形状漂移
// reason 可能是单个字符串或数组，score 可能带小数
type rawScoredEntry struct {
	ID      string          `json:"id"`
	Score   json.Number     `json:"score"`
	Reasons json.RawMessage `json:"reasons"`
	Reason  json.RawMessage `json:"reason"`
}

// ResponseParser 将补全服务的原始文本解析为评分列表
// AllowLegacyText 打开时才接受旧版 SCORE:/REASON: 纯文本格式（迁移期兜底）
type ResponseParser struct {
	AllowLegacyText bool
}

// NewResponseParser 创建响应解析器
func NewResponseParser(allowLegacyText bool) *ResponseParser {
	return &ResponseParser{AllowLegacyText: allowLegacyText}
}

// Parse 解析补全响应
// 合法但为空的数组是"无匹配"的正常结果；两种格式都解析失败返回 *ParseError
// 解析是确定性的：同一输入永远产出同一结果，任何情况下都不伪造分数
func (p *ResponseParser) Parse(raw string) ([]ScoredCandidate, error) {
	cleaned := stripCodeFences(raw)

	if jsonStr := extractJSONArray(cleaned); jsonStr != "" {
		results, err := parseJSONArray(jsonStr)
		if err == nil {
			return results, nil
		}
		// 先尝试修复字符串内部未转义的引号再解析一次
		if fixed, fixErr := parseJSONArray(sanitizeJSON(jsonStr)); fixErr == nil {
			return fixed, nil
		}
		if !p.AllowLegacyText {
			return nil, NewParseFailure(fmt.Sprintf("JSON数组解析失败: %v", err), raw)
		}
	}

	if p.AllowLegacyText {
		if results, ok := parseLegacyText(cleaned); ok {
			return results, nil
		}
	}

	return nil, NewParseFailure("响应既不是JSON数组也不是可识别的文本格式", raw)
}

// stripCodeFences 去掉markdown代码围栏
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONArray 用括号匹配从文本中提取首个完整JSON数组
// 容忍数组前后的解释性文字
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inStr {
				escaped = true
			}
		case '"':
			inStr = !inStr
		case '[':
			if !inStr {
				level++
			}
		case ']':
			if !inStr {
				level--
				if level == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// parseJSONArray 解析JSON数组并校验每条记录
func parseJSONArray(jsonStr string) ([]ScoredCandidate, error) {
	var raw []rawScoredEntry
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, err
	}

	results := make([]ScoredCandidate, 0, len(raw))
	for i, entry := range raw {
		if strings.TrimSpace(entry.ID) == "" {
			return nil, fmt.Errorf("第%d条记录缺失id", i)
		}

		score, err := coerceScore(entry.Score)
		if err != nil {
			return nil, fmt.Errorf("第%d条记录分数非法: %w", i, err)
		}

		reasons := coerceReasons(entry.Reasons)
		if len(reasons) == 0 {
			reasons = coerceReasons(entry.Reason)
		}

		results = append(results, ScoredCandidate{
			CandidateID: strings.TrimSpace(entry.ID),
			Score:       score,
			Reasons:     reasons,
		})
	}
	return results, nil
}

// coerceScore 将分数收敛到 0-100 整数分制
func coerceScore(n json.Number) (int, error) {
	if n.String() == "" {
		return 0, fmt.Errorf("缺失score字段")
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	score := int(f + 0.5)
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("score 必须在 0-100 之间, 实际 %v", n)
	}
	return score, nil
}

// coerceReasons 接受字符串或字符串数组两种形状
func coerceReasons(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, r := range list {
			if t := strings.TrimSpace(r); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if t := strings.TrimSpace(single); t != "" {
			return []string{t}
		}
	}
	return []string{}
}

// 旧版文本格式: 每个候选块内出现 "ID: x" / "SCORE: 85" / "REASON: ..." 行
var (
	legacyIDPattern     = regexp.MustCompile(`(?mi)^\s*(?:CANDIDATE\s*)?ID:\s*(\S+)\s*$`)
	legacyScorePattern  = regexp.MustCompile(`(?mi)^\s*SCORE:\s*(\d{1,3})\s*$`)
	legacyReasonPattern = regexp.MustCompile(`(?mi)^\s*REASON:\s*(.+)\s*$`)
)

// parseLegacyText 解析已废弃的 SCORE:/REASON: 文本格式
// 没有完整 id+score 的块被直接排除，不会被赋予合成分数
func parseLegacyText(text string) ([]ScoredCandidate, bool) {
	ids := legacyIDPattern.FindAllStringSubmatchIndex(text, -1)
	if len(ids) == 0 {
		return nil, false
	}

	results := make([]ScoredCandidate, 0, len(ids))
	for i, loc := range ids {
		// 块范围: 当前ID行到下一个ID行（或文本末尾）
		blockStart := loc[0]
		blockEnd := len(text)
		if i+1 < len(ids) {
			blockEnd = ids[i+1][0]
		}
		block := text[blockStart:blockEnd]
		id := text[loc[2]:loc[3]]

		scoreMatch := legacyScorePattern.FindStringSubmatch(block)
		if scoreMatch == nil {
			continue // 无分数的候选被排除而非兜底
		}
		score := 0
		fmt.Sscanf(scoreMatch[1], "%d", &score)
		if score < 0 || score > 100 {
			continue
		}

		reasons := []string{}
		if reasonMatch := legacyReasonPattern.FindStringSubmatch(block); reasonMatch != nil {
			reasons = append(reasons, strings.TrimSpace(reasonMatch[1]))
		}

		results = append(results, ScoredCandidate{
			CandidateID: id,
			Score:       score,
			Reasons:     reasons,
		})
	}

	if len(results) == 0 {
		return nil, false
	}
	return results, true
}

// sanitizeJSON 会遍历 src，将位于字符串字面量内部但并非真正结束的双引号改写为 \"
// 通过检查下一个非空白字符是否为 :, ], }, 或 , 来判断该 " 是否为字符串的结束
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if c == '"' && !escaped {
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					b.WriteString("\\\"")
				}
			}
			escaped = false
		} else if c == '\\' && !escaped {
			escaped = true
			b.WriteByte(c)
		} else {
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}
