package app

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/compose"
	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/repository"
	"gopherai-docqa/internal/router"
	"gopherai-docqa/internal/tabular"
)

// wordEmbedder hashes words into a fixed-size bag-of-words vector.
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 64)
		words := strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			v[h.Sum32()%64]++
		}
		v[0] += 0.01
		out[i] = v
	}
	return out, nil
}

type completerFunc func(call int, messages []ai.ChatMessage, opts ai.CompletionOptions) (string, error)

// recordingCompleter delegates to fn and keeps every prompt.
type recordingCompleter struct {
	mu      sync.Mutex
	fn      completerFunc
	prompts [][]ai.ChatMessage
	opts    []ai.CompletionOptions
}

func (r *recordingCompleter) Complete(_ context.Context, messages []ai.ChatMessage, opts ai.CompletionOptions) (string, error) {
	r.mu.Lock()
	call := len(r.prompts)
	r.prompts = append(r.prompts, append([]ai.ChatMessage(nil), messages...))
	r.opts = append(r.opts, opts)
	r.mu.Unlock()
	return r.fn(call, messages, opts)
}

func (r *recordingCompleter) allPromptText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, p := range r.prompts {
		for _, m := range p {
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

type fixedArbitrator []string

func (f fixedArbitrator) Choose(context.Context, string, []router.Tool) ([]string, error) {
	return f, nil
}

type qaOptions struct {
	agentic    router.Arbitrator
	docTables  bool
	embedderFn rag.EmbedderFactory
}

func newTestQA(t *testing.T, c ai.Completer, opts qaOptions) *QAService {
	t.Helper()
	factory := opts.embedderFn
	if factory == nil {
		factory = rag.StaticEmbedder(wordEmbedder{})
	}
	provider := rag.NewEmbedderProvider(factory, nil)
	engine := tabular.NewEngine(tabular.NewAnalyst(c, 10, 50, nil), nil, nil)
	ws := NewWorkspace(WorkspaceConfig{
		Pipeline: rag.PipelineConfig{ChunkSize: 2000, ChunkOverlap: 200, MaxTableRows: 50},
		TopK:     5,
	}, provider, engine, nil)

	var strategy router.Strategy = router.NewKeywordStrategy(engine)
	if opts.agentic != nil {
		strategy = router.NewAgenticStrategy(opts.agentic, strategy, nil)
	}
	return NewQAService(ws, router.New(strategy, nil), compose.New(c, compose.Options{}, nil), opts.docTables, nil)
}

func invoiceDocument(rows int) rag.Document {
	lines := []string{"item\tamount"}
	for i := 0; i < rows; i++ {
		lines = append(lines, fmt.Sprintf("inv-%03d\t%d", i, (i+1)*10))
	}
	return rag.NewDocument("Invoice for ACME\n"+rag.WrapTable(lines)+"\nPayment due in 15 days", "invoice.pdf", rag.FileTypePDF)
}

func policyDocument() rag.Document {
	return rag.NewDocument(
		"Refund policy. Customers may return items within 30 days of purchase for a full refund. "+
			"Refunds are issued to the original payment method.",
		"policy.docx", rag.FileTypeDOCX)
}

func salesTable(t *testing.T) *tabular.Table {
	t.Helper()
	tbl, err := tabular.FromRows("sales.xlsx", []string{"region", "total"}, [][]string{
		{"North", "100"}, {"South", "250"}, {"North", "50"}, {"East", "1000"},
	})
	require.NoError(t, err)
	return tbl
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[uint]*model.Session
	nextID   uint
	messages *memMessages
}

func newMemSessions(messages *memMessages) *memSessions {
	return &memSessions{sessions: map[uint]*model.Session{}, messages: messages}
}

func (m *memSessions) Create(s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) ListByUserID(userID uint) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memSessions) GetByIDAndUserID(sessionID, userID uint) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Touch(sessionID uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.UpdatedAt = at
	}
	return nil
}

func (m *memSessions) DeleteWithMessages(sessionID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.sessions, sessionID)
	if m.messages != nil {
		m.messages.deleteSession(sessionID)
	}
	return nil
}

// memMessages doubles as the publisher: published messages are stored immediately.
type memMessages struct {
	mu         sync.Mutex
	messages   []model.Message
	publishErr error
}

func (m *memMessages) Publish(_ context.Context, msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	msg.ID = uint(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memMessages) bySession(sessionID uint) []model.Message {
	var out []model.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *memMessages) ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.bySession(sessionID)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memMessages) deleteSession(sessionID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.SessionID != sessionID {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
}

type memHistory struct {
	mu      sync.Mutex
	history map[uint][]model.Message
	dirty   map[uint]bool
	sets    int
}

func newMemHistory() *memHistory {
	return &memHistory{history: map[uint][]model.Message{}, dirty: map[uint]bool{}}
}

func (h *memHistory) GetHistory(_ context.Context, id uint) ([]model.Message, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.history[id]
	return m, ok, nil
}

func (h *memHistory) SetHistory(_ context.Context, id uint, m []model.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sets++
	h.history[id] = m
	return nil
}

func (h *memHistory) DeleteHistory(_ context.Context, id uint) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.history, id)
	return nil
}

func (h *memHistory) MarkDirty(_ context.Context, id uint) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirty[id] = true
	return nil
}

func (h *memHistory) IsDirty(_ context.Context, id uint) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dirty[id], nil
}

type memDocuments struct {
	rows    []model.Document
	cleared int
}

func (m *memDocuments) CreateBatch(docs []model.Document) error {
	m.rows = append(m.rows, docs...)
	return nil
}

func (m *memDocuments) ListByUserID(userID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.rows {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocuments) DeleteAll() (int64, error) {
	n := int64(len(m.rows))
	m.rows = nil
	m.cleared++
	return n, nil
}

type memUsers struct {
	users  []*model.User
	logins int
}

func (m *memUsers) Create(u *model.User) error {
	u.ID = uint(len(m.users) + 1)
	m.users = append(m.users, u)
	return nil
}

func (m *memUsers) find(match func(*model.User) bool) (*model.User, error) {
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByUsername(name string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == name })
}

func (m *memUsers) GetByUsernameOrEmail(name, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == name || u.Email == email })
}

func (m *memUsers) GetByID(id uint) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *memUsers) RecordLogin(id uint, at time.Time) error {
	u, err := m.GetByID(id)
	if err != nil {
		return err
	}
	u.LastLoginAt = &at
	m.logins++
	return nil
}
