package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/robalobadob/soup-server/internal/puzzle"
)

const questionRules = `你是「海龟汤」游戏的严格判断者。
你会看到汤面（玩家看到的故事）和汤底（隐藏的真相），需要对玩家的提问进行分类：
1. 问题可以用是/否回答，且按照汤底事实成立 → "是"
2. 问题可以用是/否回答，且与汤底矛盾 → "否"
3. 问题与汤底无关，或无法用是/否明确判断 → "不相关"
绝不能泄露汤底信息。result 只能是 "是"、"否"、"不相关" 之一。`

const answerRules = `你是「海龟汤」游戏的答案裁判。
判断玩家提交的完整答案是否已经触及汤底的核心真相：
1. 核心逻辑正确、关键要素都说中，即使表述不完美 → "正确"
2. 只是接近、缺少关键点、方向错误或掺杂干扰真相的假设 → "错误"
3. 不要因为「很接近」就心软。你看不到提问历史，只根据本次答案和汤底独立判断。
result 只能是 "正确" 或 "错误"。`

const outputFormat = `只输出一个 JSON 对象，不要输出其他内容：
{"result": "<判定>", "reasoning": "<简要依据，仅供内部记录>"}`

func systemPrompt(rules string, p *puzzle.Puzzle) string {
	var b strings.Builder
	b.WriteString(rules)
	b.WriteString("\n\n【当前题目，仅你可见】\n汤面：\n")
	b.WriteString(strings.TrimSpace(p.Question))
	b.WriteString("\n\n汤底：\n")
	b.WriteString(strings.TrimSpace(p.Answer))
	b.WriteString("\n\n")
	b.WriteString(outputFormat)
	return b.String()
}

func userPrompt(kind Kind, text string) string {
	if kind == KindAnswer {
		return "玩家提交的答案：" + strings.TrimSpace(text)
	}
	return "玩家的提问：" + strings.TrimSpace(text)
}

// rawVerdict is the JSON shape requested from the model.
type rawVerdict struct {
	Result    string `json:"result"`
	Reasoning string `json:"reasoning"`
}

// extractVerdict pulls the verdict object out of a completion. Models
// sometimes wrap it in code fences or prose, so the outermost {...} is
// decoded; a bare single-word reply is accepted as the result.
func extractVerdict(text string) (rawVerdict, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return rawVerdict{}, errors.New("empty completion")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		if len([]rune(text)) <= 8 {
			return rawVerdict{Result: text}, nil
		}
		return rawVerdict{}, fmt.Errorf("no verdict object in %q", truncate(text, 80))
	}
	var v rawVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return rawVerdict{}, errors.Wrap(err, "decode verdict")
	}
	return v, nil
}

func parseQuestion(text string) (QuestionVerdict, error) {
	raw, err := extractVerdict(text)
	if err != nil {
		return QuestionVerdict{}, err
	}
	outcome, ok := ParseQuestionOutcome(raw.Result)
	if !ok {
		return QuestionVerdict{}, fmt.Errorf("unexpected question verdict %q", raw.Result)
	}
	return QuestionVerdict{Outcome: outcome, Rationale: strings.TrimSpace(raw.Reasoning)}, nil
}

func parseAnswer(text string) (AnswerVerdict, error) {
	raw, err := extractVerdict(text)
	if err != nil {
		return AnswerVerdict{}, err
	}
	outcome, ok := ParseAnswerOutcome(raw.Result)
	if !ok {
		return AnswerVerdict{}, fmt.Errorf("unexpected answer verdict %q", raw.Result)
	}
	return AnswerVerdict{Outcome: outcome, Rationale: strings.TrimSpace(raw.Reasoning)}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
