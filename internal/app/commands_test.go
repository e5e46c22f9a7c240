package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/appforge/pkg/config"
	"github.com/ilkoid/appforge/pkg/credentials"
	"github.com/ilkoid/appforge/pkg/library"
	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/orchestrator"
	"github.com/ilkoid/appforge/pkg/s3storage"
	"github.com/ilkoid/appforge/pkg/storage"
)

type fakeProvider struct {
	kind  llm.Kind
	reply string
	err   error
	last  llm.Request
	calls int
}

func (f *fakeProvider) Kind() llm.Kind { return f.kind }

func (f *fakeProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

type fakePublisher struct {
	key, html string
}

func (p *fakePublisher) Publish(_ context.Context, key, html string) (string, error) {
	p.key, p.html = key, html
	return "published/" + key + ".html", nil
}

func (p *fakePublisher) ListPublished(context.Context, string) ([]s3storage.StoredObject, error) {
	return nil, nil
}

func (p *fakePublisher) Download(context.Context, string) ([]byte, error) { return nil, nil }

type fixture struct {
	state  *AppState
	gemini *fakeProvider
	ds     *fakeProvider
}

func newFixture(t *testing.T, keys map[llm.Kind]string) fixture {
	t.Helper()
	kv := storage.NewMemory()
	store, err := credentials.NewStore(kv)
	require.NoError(t, err)
	for k, v := range keys {
		require.NoError(t, store.SetAPIKey(k, v))
	}

	gm := &fakeProvider{kind: llm.KindGemini, reply: `{"name":"Counter","description":"Click counter","code":"<!DOCTYPE html><p>0</p>","icon":"🔢"}`}
	ds := &fakeProvider{kind: llm.KindDeepSeek, reply: `{"name":"Other","description":"Fixed counter","code":"<!DOCTYPE html><p>1</p>","icon":"✅"}`}
	orch, err := orchestrator.New(store, []llm.Provider{ds, gm})
	require.NoError(t, err)
	lib, err := library.Open(kv)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.App.ExportDir = t.TempDir()

	state := NewAppState(context.Background(), cfg, orch, lib, nil)
	SetupCommands(state.CommandRegistry)
	return fixture{state: state, gemini: gm, ds: ds}
}

func run(t *testing.T, cmd tea.Cmd) CommandResultMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(CommandResultMsg)
	require.True(t, ok)
	return msg
}

func exec(t *testing.T, f fixture, input string) CommandResultMsg {
	t.Helper()
	return run(t, f.state.CommandRegistry.Execute(input, f.state))
}

func TestExecute_UnknownCommand(t *testing.T) {
	f := newFixture(t, nil)

	msg := exec(t, f, "/nope")
	assert.Error(t, msg.Err)
	assert.Nil(t, f.state.CommandRegistry.Execute("   ", f.state))
}

func TestGenerate_NoKeyShowsGuidance(t *testing.T) {
	f := newFixture(t, nil)

	msg := run(t, GenerateCmd(f.state, "todo app"))

	require.Error(t, msg.Err)
	assert.Contains(t, msg.Err.Error(), "/key gemini")
	assert.Equal(t, 0, f.gemini.calls+f.ds.calls)
	assert.False(t, f.state.IsProcessing())
}

func TestGenerate_AddsAndSelects(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	exec(t, f, "/style dark neon")

	msg := run(t, GenerateCmd(f.state, "click counter"))

	require.NoError(t, msg.Err)
	assert.Contains(t, msg.Output, "Counter")
	assert.Equal(t, "dark neon", f.gemini.last.StyleHint)
	assert.False(t, f.state.IsProcessing())

	app, ok := f.state.Selected()
	require.True(t, ok)
	assert.Equal(t, "Counter", app.Name)
	assert.Equal(t, llm.KindGemini, app.Provider)
}

func TestGenerate_RefusesWhileBusy(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	require.True(t, f.state.TryStartProcessing())

	msg := run(t, GenerateCmd(f.state, "x"))

	assert.Error(t, msg.Err)
	assert.Equal(t, 0, f.gemini.calls)
}

func TestGenerate_ProviderErrorHint(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	f.gemini.err = &llm.HTTPError{Provider: llm.KindGemini, StatusCode: 401}

	msg := run(t, GenerateCmd(f.state, "x"))

	require.Error(t, msg.Err)
	assert.Equal(t, 401, llm.StatusCode(msg.Err))
	assert.Contains(t, msg.Err.Error(), "/key")
	assert.Equal(t, 0, f.state.Library.Len())
}

func TestAttach_UsedOnceThenCleared(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2"), 0o644))

	msg := exec(t, f, "/attach "+path)
	require.NoError(t, msg.Err)
	assert.Equal(t, 1, f.state.PendingAttachments())

	run(t, GenerateCmd(f.state, "chart"))
	require.Len(t, f.gemini.last.Attachments, 1)
	assert.Equal(t, "data.csv", f.gemini.last.Attachments[0].Name)
	assert.Equal(t, 0, f.state.PendingAttachments())
}

func TestAttach_KeptWhenGenerationFails(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	f.state.AddAttachment(llm.Attachment{Name: "data.csv", Content: "a,b"})
	f.gemini.err = &llm.HTTPError{Provider: llm.KindGemini, StatusCode: 429}

	msg := run(t, GenerateCmd(f.state, "chart"))
	require.Error(t, msg.Err)
	assert.Equal(t, 429, llm.StatusCode(msg.Err))
	assert.Contains(t, msg.Err.Error(), "прикреплённые файлы сохранены: 1")
	assert.Equal(t, 1, f.state.PendingAttachments())
	assert.False(t, f.state.IsProcessing())

	f.gemini.err = nil
	run(t, GenerateCmd(f.state, "chart"))
	require.Len(t, f.gemini.last.Attachments, 1)
	assert.Equal(t, "data.csv", f.gemini.last.Attachments[0].Name)
	assert.Equal(t, 0, f.state.PendingAttachments())
}

func TestFix_UpdatesCodeAndDescriptionOnly(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	run(t, GenerateCmd(f.state, "counter"))
	f.gemini.reply = f.ds.reply

	msg := exec(t, f, "/fix button does nothing")
	require.NoError(t, msg.Err)

	assert.Contains(t, f.gemini.last.Prompt, "button does nothing")
	assert.Contains(t, f.gemini.last.Prompt, "<!DOCTYPE html><p>0</p>")

	app, ok := f.state.Selected()
	require.True(t, ok)
	assert.Equal(t, "Counter", app.Name)
	assert.Equal(t, "🔢", app.Icon)
	assert.Equal(t, "Fixed counter", app.Description)
	assert.Equal(t, "<!DOCTYPE html><p>1</p>", app.Code)
}

func TestFix_RequiresSelection(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})

	msg := exec(t, f, "/fix broken")
	assert.Error(t, msg.Err)
}

func TestProviderAndKeyCommands(t *testing.T) {
	f := newFixture(t, nil)

	msg := exec(t, f, "/provider deepseek")
	require.NoError(t, msg.Err)
	assert.Equal(t, llm.KindDeepSeek, f.state.Orchestrator.CurrentProvider())
	assert.Contains(t, msg.Output, "ключ не задан")

	msg = exec(t, f, "/provider openai")
	assert.ErrorIs(t, msg.Err, llm.ErrUnknownProvider)
	assert.Equal(t, llm.KindDeepSeek, f.state.Orchestrator.CurrentProvider())

	msg = exec(t, f, "/key deepseek sk-1234567890abcdef")
	require.NoError(t, msg.Err)
	assert.NotContains(t, msg.Output, "sk-1234567890abcdef")
	assert.True(t, f.state.Orchestrator.HasAPIKey(llm.KindDeepSeek))

	status := exec(t, f, "/status")
	assert.Contains(t, status.Output, "Текущий провайдер: DeepSeek")
	assert.Contains(t, status.Output, "gemini-1.5-flash")
}

func TestAppsSelectDeleteExport(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	run(t, GenerateCmd(f.state, "one"))
	run(t, GenerateCmd(f.state, "two"))

	list := exec(t, f, "/apps")
	assert.Contains(t, list.Output, "1. 🔢 Counter")
	assert.Contains(t, list.Output, "2. 🔢 Counter")

	msg := exec(t, f, "/select 1")
	require.NoError(t, msg.Err)
	first := f.state.Library.List()[0]
	sel, _ := f.state.Selected()
	assert.Equal(t, first.ID, sel.ID)

	msg = exec(t, f, "/export")
	require.NoError(t, msg.Err)
	entries, err := os.ReadDir(f.state.Config.App.ExportDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	msg = exec(t, f, "/delete 1")
	require.NoError(t, msg.Err)
	assert.Equal(t, 1, f.state.Library.Len())
	_, ok := f.state.Selected()
	assert.False(t, ok)

	msg = exec(t, f, "/select 5")
	assert.Error(t, msg.Err)
}

func TestPublish(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	run(t, GenerateCmd(f.state, "one"))

	msg := exec(t, f, "/publish")
	assert.Error(t, msg.Err, "publisher disabled")

	pub := &fakePublisher{}
	f.state.Publisher = pub
	msg = exec(t, f, "/publish")
	require.NoError(t, msg.Err)
	assert.Contains(t, pub.key, "counter-")
	assert.Equal(t, "<!DOCTYPE html><p>0</p>", pub.html)
}

func TestResolveApp_ByIDPrefix(t *testing.T) {
	f := newFixture(t, map[llm.Kind]string{llm.KindGemini: "g"})
	run(t, GenerateCmd(f.state, "one"))
	app := f.state.Library.List()[0]

	got, err := f.state.ResolveApp(app.ID[:6])
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	_, err = f.state.ResolveApp("zzzzzz")
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestGetCommands_Sorted(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.state.CommandRegistry.GetCommands()

	assert.Contains(t, cmds, "/fix")
	assert.IsNonDecreasing(t, cmds)
}
