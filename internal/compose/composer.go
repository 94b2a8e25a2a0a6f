package compose

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/render"
	"gopherai-docqa/internal/router"
)

const (
	DefaultTemperature  = 0.3
	DefaultMaxTokens    = 2048
	DefaultHistoryTurns = 5
)

const (
	generalSystemPrompt = "You are a helpful assistant. Be informative and helpful."

	documentSystemPrompt = `You are a helpful assistant that answers questions based on documents, emails and chat conversations.

IMPORTANT: When answering questions from the provided context, you MUST:
1. Cite the source document(s) you used to form your answer
2. At the end of your response, include a "Sources:" section listing all referenced documents
3. Use the exact source names provided in the context (e.g., "Source: filename.pdf")
4. If information comes from WhatsApp, cite it as "WhatsApp messages"
5. If information comes from Gmail, cite it as "Gmail - [subject]"

Example format:
[Your answer here]

**Sources:**
- document1.pdf
- document2.pdf
- WhatsApp messages

Maintain context from previous questions.`

	documentUserPrompt = `Based on the following context, please answer the question. Remember to cite your sources.

Context:
%s
%s

Question: %s

Provide a detailed answer based on the context and include citations.`

	tabularSystemPrompt = `You are a helpful data analyst. You are answering a question using spreadsheet data.

CRITICAL RULES:
1. ONLY cite spreadsheet sources: %s
2. Do NOT mention or cite any PDF, DOCX, or other document files
3. Your answer is based purely on the data analysis
4. End with **Sources:** section listing only the spreadsheet file(s) used`

	tabularUserPrompt = `Answer the user's question using ONLY the data analysis result below.

User Question: %s

Data Analysis Result:
%s

IMPORTANT:
- Base your answer ONLY on the data analysis above
- Do NOT reference any other documents
- At the end, include a **Sources:** section listing ONLY the spreadsheet file(s): %s

Provide a clear, concise answer based on the data.`
)

// sourcesHeader matches a "Sources" heading line in any of the usual markdown spellings.
var sourcesHeader = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?(?:\*\*|__)?sources(?:\*\*|__)?[ \t]*(?::|$)`)

// Request is the evidence for one answer. Evidence is the retrieved context on the rag route and
// the tabular analysis on the excel route; it is ignored on the general route.
type Request struct {
	Route    router.Route
	Query    string
	Evidence string
	Sources  []string
	History  []ai.ChatMessage
}

type Options struct {
	Temperature  float64
	MaxTokens    int
	HistoryTurns int
}

type Composer struct {
	completer ai.Completer
	opts      Options
	logger    *zap.Logger
}

func New(completer ai.Completer, opts Options, logger *zap.Logger) *Composer {
	if opts.Temperature < 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = DefaultHistoryTurns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{completer: completer, opts: opts, logger: logger}
}

// Messages builds the prompt for req: a route-specific system message, the most recent history
// turns, then the evidence-bearing user message.
func (c *Composer) Messages(req Request) []ai.ChatMessage {
	var system, user string
	switch req.Route {
	case router.RouteExcel:
		sources := strings.Join(req.Sources, ", ")
		if sources == "" {
			sources = "spreadsheet data"
		}
		system = fmt.Sprintf(tabularSystemPrompt, sources)
		user = fmt.Sprintf(tabularUserPrompt, req.Query, req.Evidence, sources)
	case router.RouteRAG:
		hint := ""
		if len(req.Sources) > 0 {
			hint = "\n\nAvailable sources for citation: " + strings.Join(req.Sources, ", ")
		}
		system = documentSystemPrompt
		user = fmt.Sprintf(documentUserPrompt, req.Evidence, hint, req.Query)
	default:
		system = generalSystemPrompt
		user = req.Query
	}

	history := req.History
	if n := c.opts.HistoryTurns; len(history) > n {
		history = history[len(history)-n:]
	}
	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: system})
	messages = append(messages, history...)
	return append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: user})
}

// Compose asks the model for an answer and finalizes it.
func (c *Composer) Compose(ctx context.Context, req Request) (string, error) {
	reply, err := c.completer.Complete(ctx, c.Messages(req), ai.CompletionOptions{
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("compose answer failed: %w", err)
	}
	c.logger.Debug("answer composed", zap.String("route", string(req.Route)), zap.Int("sources", len(req.Sources)))
	return Finalize(reply, req.Sources), nil
}

// Finalize rewrites aligned text tables as markdown and, when sources are given, replaces any
// model-written Sources section with one listing exactly those sources.
func Finalize(text string, sources []string) string {
	if len(sources) == 0 {
		return render.FormatTextTables(strings.TrimSpace(text))
	}
	body := text
	if locs := sourcesHeader.FindAllStringIndex(text, -1); len(locs) > 0 {
		body = text[:locs[len(locs)-1][0]]
	}
	body = render.FormatTextTables(strings.TrimSpace(body))

	var b strings.Builder
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	b.WriteString("**Sources:**")
	for _, s := range sources {
		b.WriteString("\n- ")
		b.WriteString(s)
	}
	return b.String()
}

// Direct formats a tool output returned verbatim to the user.
func Direct(text string) string {
	return render.FormatTextTables(strings.TrimSpace(text))
}
