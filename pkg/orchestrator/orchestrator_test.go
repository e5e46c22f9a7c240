package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/appforge/pkg/credentials"
	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/llm/deepseek"
	"github.com/ilkoid/appforge/pkg/llm/gemini"
	"github.com/ilkoid/appforge/pkg/storage"
)

const validReply = `{"name":"Counter","description":"Click counter","code":"<!DOCTYPE html><html></html>","icon":"🔢"}`

// fakeProvider считает вызовы и запоминает последний запрос.
type fakeProvider struct {
	kind  llm.Kind
	reply string
	err   error
	calls int
	last  llm.Request
}

func (f *fakeProvider) Kind() llm.Kind { return f.kind }

func (f *fakeProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func newStore(t *testing.T, keys map[llm.Kind]string) *credentials.Store {
	t.Helper()
	store, err := credentials.NewStore(storage.NewMemory())
	require.NoError(t, err)
	for k, v := range keys {
		require.NoError(t, store.SetAPIKey(k, v))
	}
	return store
}

func newFakes() (*fakeProvider, *fakeProvider) {
	return &fakeProvider{kind: llm.KindDeepSeek, reply: validReply},
		&fakeProvider{kind: llm.KindGemini, reply: validReply}
}

func TestNew_RequiresEveryProvider(t *testing.T) {
	ds, _ := newFakes()

	_, err := New(newStore(t, nil), []llm.Provider{ds})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	ds, gm := newFakes()

	o, err := New(newStore(t, nil), []llm.Provider{ds, gm})
	require.NoError(t, err)

	assert.Equal(t, llm.KindGemini, o.CurrentProvider())
	assert.Equal(t, []llm.Kind{llm.KindGemini, llm.KindDeepSeek}, o.FallbackOrder())
}

func TestGenerate_UsesCurrentWhenConfigured(t *testing.T) {
	ds, gm := newFakes()
	store := newStore(t, map[llm.Kind]string{llm.KindGemini: "g", llm.KindDeepSeek: "d"})
	o, err := New(store, []llm.Provider{ds, gm})
	require.NoError(t, err)

	rec, err := o.GenerateApplication(context.Background(), llm.Request{Prompt: "counter"})
	require.NoError(t, err)

	assert.Equal(t, "Counter", rec.Name)
	assert.Equal(t, 1, gm.calls)
	assert.Equal(t, 0, ds.calls)
	assert.Equal(t, "counter", gm.last.Prompt)
}

func TestGenerate_FallbackIsDeterministic(t *testing.T) {
	ds, gm := newFakes()
	store := newStore(t, map[llm.Kind]string{llm.KindDeepSeek: "d"})
	o, err := New(store, []llm.Provider{ds, gm})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := o.GenerateApplication(context.Background(), llm.Request{Prompt: "x"})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, ds.calls)
	assert.Equal(t, 0, gm.calls)
	assert.Equal(t, llm.KindDeepSeek, o.CurrentProvider())
}

func TestGenerate_CustomFallbackOrder(t *testing.T) {
	ds, gm := newFakes()
	store := newStore(t, map[llm.Kind]string{llm.KindDeepSeek: "d", llm.KindGemini: "g"})
	o, err := New(store, []llm.Provider{ds, gm},
		WithDefaultProvider(llm.KindDeepSeek),
		WithFallbackOrder(llm.KindDeepSeek, llm.KindGemini, llm.Kind("bogus"), llm.KindDeepSeek))
	require.NoError(t, err)

	assert.Equal(t, []llm.Kind{llm.KindDeepSeek, llm.KindGemini}, o.FallbackOrder())

	_, err = o.GenerateApplication(context.Background(), llm.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.calls)
}

func TestGenerate_NoProviderMakesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	store := newStore(t, nil)
	o, err := New(store, []llm.Provider{
		deepseek.NewClient(store, 0, llm.WithBaseURL(srv.URL)),
		gemini.NewClient(store, 0, llm.WithBaseURL(srv.URL)),
	})
	require.NoError(t, err)

	_, err = o.GenerateApplication(context.Background(), llm.Request{Prompt: "x"})

	assert.ErrorIs(t, err, llm.ErrNoProviderAvailable)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.False(t, o.AnyConfigured())
}

func TestGenerate_ProviderErrorPropagates(t *testing.T) {
	ds, gm := newFakes()
	gm.err = &llm.HTTPError{Provider: llm.KindGemini, StatusCode: 401}
	store := newStore(t, map[llm.Kind]string{llm.KindGemini: "g", llm.KindDeepSeek: "d"})
	o, err := New(store, []llm.Provider{ds, gm})
	require.NoError(t, err)

	_, err = o.GenerateApplication(context.Background(), llm.Request{Prompt: "x"})

	var httpErr *llm.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 401, httpErr.StatusCode)
	assert.Equal(t, 0, ds.calls, "no cross-provider retry")
	assert.Equal(t, 1, gm.calls)
}

func TestGenerate_UsesInjectedNormalizer(t *testing.T) {
	ds, gm := newFakes()
	gm.reply = "anything"
	store := newStore(t, map[llm.Kind]string{llm.KindGemini: "g"})
	o, err := New(store, []llm.Provider{ds, gm}, WithNormalizer(func(raw string) llm.ApplicationRecord {
		return llm.ApplicationRecord{Name: "n:" + raw, Description: "d", Code: "c", Icon: "i"}
	}))
	require.NoError(t, err)

	rec, err := o.GenerateApplication(context.Background(), llm.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "n:anything", rec.Name)
}

func TestFixApplication_SendsCodeAndError(t *testing.T) {
	var userContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(raw, &body)
		for _, m := range body.Messages {
			if m.Role == "user" {
				userContent = m.Content
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"name\":\"Fixed\",\"code\":\"<html>new</html>\"}"}}]}`)
	}))
	t.Cleanup(srv.Close)

	store := newStore(t, map[llm.Kind]string{llm.KindDeepSeek: "d"})
	o, err := New(store, []llm.Provider{
		deepseek.NewClient(store, 0, llm.WithBaseURL(srv.URL)),
		gemini.NewClient(store, 0, llm.WithBaseURL(srv.URL)),
	}, WithDefaultProvider(llm.KindDeepSeek))
	require.NoError(t, err)

	rec, err := o.FixApplication(context.Background(), "<html>old</html>", "button does nothing")
	require.NoError(t, err)

	assert.Contains(t, userContent, "button does nothing")
	assert.Contains(t, userContent, "<html>old</html>")
	assert.Equal(t, "Fixed", rec.Name)
	assert.Equal(t, "<html>new</html>", rec.Code)
}

func TestSwitchProvider(t *testing.T) {
	ds, gm := newFakes()
	o, err := New(newStore(t, nil), []llm.Provider{ds, gm})
	require.NoError(t, err)

	assert.True(t, o.SwitchProvider(llm.KindDeepSeek))
	assert.Equal(t, llm.KindDeepSeek, o.CurrentProvider())

	assert.False(t, o.SwitchProvider(llm.Kind("openai")))
	assert.Equal(t, llm.KindDeepSeek, o.CurrentProvider(), "unknown kind is a no-op")
}

func TestSetAPIKey_DelegatesToStore(t *testing.T) {
	ds, gm := newFakes()
	o, err := New(newStore(t, nil), []llm.Provider{ds, gm})
	require.NoError(t, err)

	require.NoError(t, o.SetAPIKey(llm.KindGemini, "AIza-test-key"))
	assert.True(t, o.HasAPIKey(llm.KindGemini))
	assert.True(t, o.AnyConfigured())

	assert.ErrorIs(t, o.SetAPIKey(llm.Kind("x"), "k"), llm.ErrUnknownProvider)
}
