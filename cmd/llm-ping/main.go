// llm-ping - проверка доступности провайдеров с текущими ключами.
//
// Для каждого провайдера отправляет один короткий запрос и печатает
// статус, HTTP код и задержку. Провайдеры без ключа пропускаются
// без сетевого вызова.
//
// Использование:
//
//	llm-ping [-config config.yaml] [-provider gemini]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	appcomponents "github.com/ilkoid/appforge/pkg/app"
	"github.com/ilkoid/appforge/pkg/factory"
	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/utils"
)

const pingPrompt = "A single button that says OK."

// pingResult - итог пинга одного провайдера.
type pingResult struct {
	Provider   llm.Kind
	Model      string
	Available  bool
	Skipped    bool
	StatusCode int
	Latency    time.Duration
	Err        error
}

func main() {
	configFlag := flag.String("config", "", "путь к config.yaml")
	only := flag.String("provider", "", "проверить только этого провайдера")
	timeout := flag.Duration("timeout", 60*time.Second, "таймаут на один запрос")
	flag.Parse()

	c, err := appcomponents.Initialize(appcomponents.Options{ConfigFlag: *configFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	kinds := llm.Kinds()
	if *only != "" {
		k, ok := llm.ParseKind(*only)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: %v: %s\n", llm.ErrUnknownProvider, *only)
			os.Exit(1)
		}
		kinds = []llm.Kind{k}
	}

	failed := false
	for _, k := range kinds {
		def := c.Config.Provider(k)
		p, err := factory.NewProvider(k, def, c.Credentials)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("🔍 %s (%s)\n", k.DisplayName(), def.ModelName)
		res := ping(p, def.ModelName, *timeout)
		printResult(res)
		if !res.Available && !res.Skipped {
			failed = true
		}
	}
	if failed {
		os.Exit(2)
	}
}

func ping(p llm.Provider, model string, timeout time.Duration) pingResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res := pingResult{Provider: p.Kind(), Model: model}
	start := time.Now()
	_, err := p.Generate(ctx, llm.Request{Prompt: pingPrompt})
	res.Latency = time.Since(start)

	switch {
	case err == nil:
		res.Available = true
	case errors.Is(err, llm.ErrMissingCredential):
		res.Skipped = true
	default:
		res.Err = err
		res.StatusCode = llm.StatusCode(err)
	}
	return res
}

// printResult выводит результат пинга в красивом формате
func printResult(r pingResult) {
	switch {
	case r.Skipped:
		fmt.Printf("⏭️  Status: SKIPPED (no API key)\n\n")
	case r.Available:
		fmt.Printf("✅ Status: AVAILABLE\n")
		fmt.Printf("   Latency: %dms\n\n", r.Latency.Milliseconds())
	default:
		fmt.Printf("❌ Status: UNAVAILABLE\n")
		if r.StatusCode > 0 {
			fmt.Printf("   HTTP Code: %d\n", r.StatusCode)
		}
		fmt.Printf("   Error: %v\n", r.Err)
		fmt.Printf("   Latency: %dms\n\n", r.Latency.Milliseconds())
		utils.Warn("Ping failed", "provider", r.Provider, "error", r.Err)
	}
}
