package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/bootstrap"
	"gopherai-docqa/internal/config"
	"gopherai-docqa/internal/rag"
)

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(context.Context, []ai.ChatMessage, ai.CompletionOptions) (string, error) {
	return s.reply, nil
}

type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 27)
		v[26] = 0.01
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

// useStubCore points loadCore at an in-memory core answering with reply.
func useStubCore(t *testing.T, reply string) {
	t.Helper()
	orig := loadCore
	t.Cleanup(func() { loadCore = orig })
	loadCore = func() (*bootstrap.Core, error) {
		return bootstrap.NewCoreWithClients(config.Default(), nil, stubCompleter{reply: reply}, func(context.Context) (rag.Embedder, error) {
			return letterEmbedder{}, nil
		}), nil
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
