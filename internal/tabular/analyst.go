package tabular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
)

const (
	DefaultMaxIterations = 10
	DefaultMaxResultRows = 50

	analystMaxTokens = 1024
)

var (
	ErrIterationsExhausted = errors.New("analysis stopped before reaching an answer")
	ErrNoAnswer            = errors.New("analysis produced no answer")
)

const analystPrompt = `You are a data analyst working with one table named %q.

IMPORTANT RULES:
1. You have access to the ENTIRE table with %d rows and %d columns.
2. The sample data below is ONLY for reference to understand the structure.
3. You MUST run queries to answer questions. NEVER guess based on the sample.

Reply with exactly one JSON object per turn, either
  {"action": "query", "plan": {...}}
to run a read-only query and see its result, or
  {"action": "final", "answer": "...", "include_result": true}
once you can answer. include_result appends your last query result as a markdown table.

Plan fields (all optional):
  "filters":    [{"column": "...", "op": "==", "value": ...}]  ops: ==, !=, >, >=, <, <=, contains, not_contains, startswith, in, not_in
  "group_by":   ["column", ...]
  "aggregates": [{"func": "sum", "column": "...", "as": "..."}]  funcs: count, sum, avg, mean, median, min, max, nunique
  "select":     ["column", ...]
  "distinct":   true
  "sort":       [{"column": "...", "desc": true}]  (sort by output column names)
  "limit":      10

OUTPUT RULES:
- When asked for a list of items, give the actual values, not just a count.
- Use exact numbers from query results.
- Prefer include_result for tabular answers instead of retyping tables.

%s`

type step struct {
	Action        string `json:"action"`
	Plan          *Plan  `json:"plan,omitempty"`
	Answer        string `json:"answer,omitempty"`
	IncludeResult bool   `json:"include_result,omitempty"`
}

// Analyst answers a question about one table by letting the model issue read-only query
// plans until it produces a final answer, bounded by maxIterations model calls.
type Analyst struct {
	completer     ai.Completer
	maxIterations int
	maxResultRows int
	logger        *zap.Logger
}

func NewAnalyst(completer ai.Completer, maxIterations, maxResultRows int, logger *zap.Logger) *Analyst {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if maxResultRows <= 0 {
		maxResultRows = DefaultMaxResultRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{completer: completer, maxIterations: maxIterations, maxResultRows: maxResultRows, logger: logger}
}

func (a *Analyst) Analyze(ctx context.Context, t *Table, question string) (string, error) {
	messages := []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: fmt.Sprintf(analystPrompt, t.Name, len(t.Rows), len(t.Columns), Describe(t))},
		{Role: ai.RoleUser, Content: question},
	}
	opts := ai.CompletionOptions{Temperature: 0, MaxTokens: analystMaxTokens, JSON: true}

	var last *Result
	for i := 0; i < a.maxIterations; i++ {
		reply, err := a.completer.Complete(ctx, messages, opts)
		if err != nil {
			return "", fmt.Errorf("analyst completion failed: %w", err)
		}
		messages = append(messages, ai.ChatMessage{Role: ai.RoleAssistant, Content: reply})

		st, err := parseStep(reply)
		if err != nil {
			a.logger.Debug("unparseable analyst step", zap.String("table", t.Name), zap.Error(err))
			messages = append(messages, observation("Error: "+err.Error()+". Reply with one JSON object as instructed."))
			continue
		}

		switch st.Action {
		case "final":
			answer := strings.TrimSpace(st.Answer)
			if st.IncludeResult && last != nil {
				answer = strings.TrimSpace(answer + "\n\n" + last.Markdown(a.maxResultRows))
			}
			if answer == "" {
				return "", ErrNoAnswer
			}
			return answer, nil
		case "query":
			if st.Plan == nil {
				messages = append(messages, observation("Error: query action needs a plan."))
				continue
			}
			res, err := Evaluate(t, *st.Plan)
			if err != nil {
				messages = append(messages, observation("Error: "+err.Error()))
				continue
			}
			last = res
			a.logger.Debug("analyst query", zap.String("table", t.Name), zap.Int("iteration", i+1), zap.Int("rows", res.Total))
			messages = append(messages, observation(res.Markdown(a.maxResultRows)))
		default:
			messages = append(messages, observation(fmt.Sprintf("Error: unknown action %q. Use \"query\" or \"final\".", st.Action)))
		}
	}
	return "", fmt.Errorf("%w after %d iterations", ErrIterationsExhausted, a.maxIterations)
}

func observation(text string) ai.ChatMessage {
	return ai.ChatMessage{Role: ai.RoleUser, Content: "Observation:\n" + text}
}

// parseStep reads the first JSON object in reply, tolerating code fences and surrounding prose.
func parseStep(reply string) (step, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return step{}, errors.New("no JSON object in reply")
	}
	var st step
	if err := json.Unmarshal([]byte(reply[start:end+1]), &st); err != nil {
		return step{}, fmt.Errorf("invalid JSON: %v", err)
	}
	st.Action = strings.ToLower(strings.TrimSpace(st.Action))
	return st, nil
}
