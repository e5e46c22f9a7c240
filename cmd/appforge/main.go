// AppForge TUI Application
// Основная точка входа для интерактивного интерфейса
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/appforge/internal/app"
	"github.com/ilkoid/appforge/internal/ui"
	appcomponents "github.com/ilkoid/appforge/pkg/app"
	"github.com/ilkoid/appforge/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "путь к config.yaml")
	ephemeral := flag.Bool("ephemeral", false, "не сохранять ключи и приложения на диск")
	flag.Parse()

	// 1. Компоненты: конфиг, лог, хранилище, ключи, оркестратор, библиотека
	c, err := appcomponents.Initialize(appcomponents.Options{
		ConfigFlag: *configFlag,
		Ephemeral:  *ephemeral,
		Logging:    true,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer utils.SetupGracefulShutdown(cancel, c.Close)()

	utils.Info("Application started", "config", c.ConfigPath, "storage", c.Config.Storage.Path)
	c.LogKeysInfo()

	// 2. Состояние TUI и команды
	state := app.NewAppState(ctx, c.Config, c.Orchestrator, c.Library, nil)
	if c.Publisher != nil {
		state.Publisher = c.Publisher
	}
	app.SetupCommands(state.CommandRegistry)

	// 3. Запускаем Bubble Tea программу
	p := tea.NewProgram(
		ui.InitialModel(state),
		tea.WithContext(ctx),
		// Без AltScreen - позволяет выделять текст мышкой и копировать в буфер обмена
	)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		utils.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	utils.Info("Application exited normally")
	return nil
}
