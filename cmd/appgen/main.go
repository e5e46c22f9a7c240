// appgen - генерация или исправление одного приложения без TUI.
//
// Примеры:
//
//	appgen -prompt "todo list with local storage" -out todo.html
//	appgen -prompt "dashboard" -style "dark, minimal" -attach data.csv
//	appgen -fix todo.html -error "delete button does nothing" -out todo.html
//	appgen -set-key gemini=AIza...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appcomponents "github.com/ilkoid/appforge/pkg/app"
	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/utils"
)

// attachFlags - повторяемый флаг -attach.
type attachFlags []string

func (a *attachFlags) String() string { return strings.Join(*a, ",") }

func (a *attachFlags) Set(v string) error {
	*a = append(*a, v)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var attachments attachFlags
	prompt := flag.String("prompt", "", "описание приложения")
	style := flag.String("style", "", "пожелания к стилю")
	fixFile := flag.String("fix", "", "HTML файл для исправления")
	errDesc := flag.String("error", "", "описание ошибки для -fix")
	provider := flag.String("provider", "", "провайдер: deepseek | gemini")
	out := flag.String("out", "", "куда записать HTML (по умолчанию stdout)")
	configFlag := flag.String("config", "", "путь к config.yaml")
	ephemeral := flag.Bool("ephemeral", false, "не сохранять ключи и приложения на диск")
	setKey := flag.String("set-key", "", "сохранить ключ: <provider>=<key>")
	flag.Var(&attachments, "attach", "приложить файл (можно повторять)")
	flag.Parse()

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

	utils.Info("appgen started", "config", c.ConfigPath)

	if *setKey != "" {
		if err := applySetKey(c, *setKey); err != nil {
			return err
		}
		if *prompt == "" && *fixFile == "" {
			return nil
		}
	}

	if *provider != "" {
		kind, ok := llm.ParseKind(strings.ToLower(*provider))
		if !ok {
			return fmt.Errorf("%w: %s", llm.ErrUnknownProvider, *provider)
		}
		c.Orchestrator.SwitchProvider(kind)
	}

	var rec llm.ApplicationRecord
	switch {
	case *fixFile != "":
		if *errDesc == "" {
			return errors.New("-fix requires -error")
		}
		code, err := os.ReadFile(*fixFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", *fixFile, err)
		}
		rec, err = c.Orchestrator.FixApplication(ctx, string(code), *errDesc)
		if err != nil {
			return err
		}

	case *prompt != "":
		req := llm.Request{Prompt: *prompt, StyleHint: *style}
		for _, path := range attachments {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			req.Attachments = append(req.Attachments, llm.Attachment{Name: filepath.Base(path), Content: string(data)})
		}
		rec, err = c.Orchestrator.GenerateApplication(ctx, req)
		if err != nil {
			return err
		}
		if _, err := c.Library.Add(rec, c.Orchestrator.CurrentProvider()); err != nil {
			utils.Warn("appgen: library save failed", "error", err)
		}

	default:
		flag.Usage()
		return errors.New("нужен -prompt, -fix или -set-key")
	}

	fmt.Fprintf(os.Stderr, "%s %s (%s)\n%s\n", rec.Icon, rec.Name, c.Orchestrator.CurrentProvider().DisplayName(), rec.Description)
	if *out == "" {
		fmt.Println(rec.Code)
		return nil
	}
	if err := os.WriteFile(*out, []byte(rec.Code), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(os.Stderr, "saved: %s\n", *out)
	return nil
}

// applySetKey разбирает "<provider>=<key>" и сохраняет ключ.
func applySetKey(c *appcomponents.Components, spec string) error {
	name, key, ok := strings.Cut(spec, "=")
	if !ok {
		return errors.New("-set-key: ожидается <provider>=<key>")
	}
	kind, ok := llm.ParseKind(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return fmt.Errorf("-set-key: %w: %s", llm.ErrUnknownProvider, name)
	}
	if err := c.Orchestrator.SetAPIKey(kind, strings.TrimSpace(key)); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "key saved for %s: %s\n", kind.DisplayName(), utils.MaskSecret(key))
	return nil
}
