package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/compose"
	"gopherai-docqa/internal/model"
	"gopherai-docqa/internal/pkg/jwtutil"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/repository"
	"gopherai-docqa/internal/router"
	"gopherai-docqa/internal/tabular"
)

const testSecret = "test-secret"

type stubCompleter struct{}

func (stubCompleter) Complete(_ context.Context, _ []ai.ChatMessage, opts ai.CompletionOptions) (string, error) {
	if opts.JSON {
		return `{"action":"final","answer":"The total is 350."}`, nil
	}
	return "Here is what I found.", nil
}

type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		v[0] += 0.01
		out[i] = v
	}
	return out, nil
}

type memUsers struct{ users []*model.User }

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
	return nil
}

type memDocuments struct{ rows []model.Document }

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
	return n, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	completer := stubCompleter{}
	engine := tabular.NewEngine(tabular.NewAnalyst(completer, 3, 20, nil), nil, nil)
	ws := app.NewWorkspace(app.WorkspaceConfig{TopK: 5},
		rag.NewEmbedderProvider(rag.StaticEmbedder(letterEmbedder{}), nil), engine, nil)
	qa := app.NewQAService(ws, router.New(router.NewKeywordStrategy(engine), nil), compose.New(completer, compose.Options{}, nil), true, nil)

	r := gin.New()
	RegisterAPI(r, Services{
		Auth:      app.NewAuthService(&memUsers{}, testSecret, time.Hour),
		QA:        qa,
		Documents: app.NewDocumentService(&memDocuments{}, qa, nil, nil),
	}, testSecret, 50)
	return &testServer{t: t, engine: r}
}

func (s *testServer) do(req *nethttp.Request) (int, envelope) {
	s.t.Helper()
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) postJSON(path string, body any) (int, envelope) {
	s.t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(s.t, err)
	req := httptest.NewRequest(nethttp.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) upload(filename, content string) (int, envelope) {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func (s *testServer) login() {
	s.t.Helper()
	code, env := s.postJSON("/api/v1/auth/register", map[string]string{
		"username": "ana", "email": "ana@example.com", "password": "password123",
	})
	require.Equal(s.t, nethttp.StatusOK, code, env.Message)
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &auth))
	s.token = auth.Token
}

func TestAPI_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	code, env := s.postJSON("/api/v1/query", map[string]string{"query": "hello"})

	assert.Equal(t, nethttp.StatusUnauthorized, code)
	assert.Equal(t, 40100, env.Code)
}

func TestAPI_MeResolvesUser(t *testing.T) {
	s := newTestServer(t)
	s.login()

	code, env := s.do(httptest.NewRequest(nethttp.MethodGet, "/api/v1/auth/me", nil))
	require.Equal(t, nethttp.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"username":"ana"`)

	ghost, err := jwtutil.GenerateToken(testSecret, time.Hour, 99, "ghost")
	require.NoError(t, err)
	s.token = ghost
	code, env = s.do(httptest.NewRequest(nethttp.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, nethttp.StatusUnauthorized, code)
	assert.Equal(t, "user not found", env.Message)
}

func TestAPI_QueryRoutesByLoadedSources(t *testing.T) {
	s := newTestServer(t)
	s.login()

	code, env := s.postJSON("/api/v1/query", map[string]string{"query": "hello"})
	require.Equal(t, nethttp.StatusOK, code, env.Message)
	var answer app.Answer
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.Equal(t, "general", answer.QueryType)
	assert.Equal(t, []string{}, answer.ToolsUsed)

	code, env = s.upload("sales.csv", "region,total\nNorth,100\nSouth,250\n")
	require.Equal(t, nethttp.StatusOK, code, env.Message)

	code, env = s.postJSON("/api/v1/documents/text", map[string]string{"name": "policy.txt", "content": "Refunds are accepted within 30 days."})
	require.Equal(t, nethttp.StatusOK, code, env.Message)

	code, env = s.postJSON("/api/v1/query", map[string]string{"query": "total sum of sales"})
	require.Equal(t, nethttp.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.Equal(t, "excel", answer.QueryType)
	assert.Equal(t, []string{"Excel_Data_Analyst"}, answer.ToolsUsed)
	assert.Equal(t, "Here is what I found.\n\n**Sources:**\n- sales.csv", answer.Response)

	code, env = s.postJSON("/api/v1/query", map[string]string{"query": "what about refunds?"})
	require.Equal(t, nethttp.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.Equal(t, "rag", answer.QueryType)
	assert.Equal(t, []string{"policy.txt"}, answer.Sources)
}

func TestAPI_StatusAndReset(t *testing.T) {
	s := newTestServer(t)
	s.login()
	code, env := s.upload("sales.csv", "region,total\nNorth,100\n")
	require.Equal(t, nethttp.StatusOK, code, env.Message)

	code, env = s.do(httptest.NewRequest(nethttp.MethodGet, "/api/v1/status", nil))
	require.Equal(t, nethttp.StatusOK, code)
	var st app.WorkspaceStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, []string{"sales.csv"}, st.TablesLoaded)
	assert.False(t, st.RAGInitialized)

	code, env = s.postJSON("/api/v1/reset", nil)
	require.Equal(t, nethttp.StatusOK, code)
	var reset app.ResetResult
	require.NoError(t, json.Unmarshal(env.Data, &reset))
	assert.Equal(t, int64(1), reset.Records)

	_, env = s.do(httptest.NewRequest(nethttp.MethodGet, "/api/v1/status", nil))
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Empty(t, st.TablesLoaded)
}

func TestAPI_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	s.login()

	code, env := s.upload("contract.docx", "binary")
	assert.Equal(t, nethttp.StatusUnsupportedMediaType, code)
	assert.Equal(t, 41500, env.Code)

	code, env = s.upload("scan.png", "png")
	assert.Equal(t, nethttp.StatusServiceUnavailable, code)
	assert.Equal(t, 50302, env.Code)

	code, env = s.postJSON("/api/v1/query", map[string]string{"query": ""})
	assert.Equal(t, nethttp.StatusBadRequest, code)
	assert.Equal(t, 40000, env.Code)

	code, env = s.postJSON("/api/v1/query", map[string]string{"query": "   "})
	assert.Equal(t, nethttp.StatusBadRequest, code)
	assert.Equal(t, "query is empty", env.Message)
}
