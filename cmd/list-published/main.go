// list-published - просмотр приложений, опубликованных в S3 (/publish).
//
// Использование:
//
//	list-published                      # интерактивный список
//	list-published -prefix 2026         # только под префиксом
//	list-published -get apps/todo.html -out todo.html
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ilkoid/appforge/pkg/config"
	"github.com/ilkoid/appforge/pkg/s3storage"
)

// --- Стили ---
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")). // Зеленый
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")) // Розовый
)

// --- Сообщения ---
type errMsg struct{ error }
type contentMsg []s3storage.StoredObject

// --- Модель ---
type model struct {
	publisher s3storage.Publisher
	prefix    string
	spinner   spinner.Model
	viewport  viewport.Model

	loading bool
	err     error
	ready   bool
}

func initialModel(p s3storage.Publisher, prefix string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = itemStyle

	return model{
		publisher: p,
		prefix:    prefix,
		spinner:   s,
		loading:   true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchPublished(m.publisher, m.prefix))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case errMsg:
		m.err = msg.error
		m.loading = false
		return m, nil

	case contentMsg:
		m.loading = false
		m.viewport.SetContent(formatList(msg))
		return m, nil

	case tea.WindowSizeMsg:
		const headerHeight, footerHeight = 2, 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
	}

	if m.loading {
		m.spinner, cmd = m.spinner.Update(msg)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n❌ Error: %v\n\nPress 'q' to quit.", m.err)
	}
	if m.loading {
		return fmt.Sprintf("\n %s Fetching published apps...\n\n", m.spinner.View())
	}

	header := titleStyle.Render("☁️ Published apps")
	return fmt.Sprintf("%s\n%s\n\n(Press 'q' to quit, arrows to scroll)", header, m.viewport.View())
}

func fetchPublished(p s3storage.Publisher, prefix string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		objects, err := p.ListPublished(ctx, prefix)
		if err != nil {
			return errMsg{err}
		}
		return contentMsg(objects)
	}
}

func formatList(objects []s3storage.StoredObject) string {
	if len(objects) == 0 {
		return "Nothing published yet. Use /publish in appforge."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d\n\n", len(objects))
	for _, o := range objects {
		fmt.Fprintf(&b, "%s  %-10s  %s  %s\n",
			itemStyle.Render("•"),
			fmt.Sprintf("%.2f KB", float64(o.Size)/1024),
			o.LastModified.Format("2006-01-02 15:04"),
			o.Key,
		)
	}
	return b.String()
}

func main() {
	configFlag := flag.String("config", config.DefaultPath, "путь к config.yaml")
	prefix := flag.String("prefix", "", "префикс внутри s3.prefix")
	get := flag.String("get", "", "скачать объект по ключу")
	out := flag.String("out", "", "файл для -get (по умолчанию stdout)")
	flag.Parse()

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Env Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config Error: %v\n", err)
		os.Exit(1)
	}
	client, err := s3storage.New(cfg.S3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "S3 Init Error: %v\n", err)
		os.Exit(1)
	}

	if *get != "" {
		if err := download(client, *get, *out); err != nil {
			fmt.Fprintf(os.Stderr, "Download Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(initialModel(client, *prefix), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
}

func download(p s3storage.Publisher, key, out string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := p.Download(ctx, key)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}
