package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Closer освобождает ресурс при завершении (БД, клиент хранилища ...).
type Closer func() error

// SetupGracefulShutdown отменяет cancel по SIGINT/SIGTERM.
//
// Возвращаемую функцию вызывают через defer в main():
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer utils.SetupGracefulShutdown(cancel, kv.Close)()
//
// Она снимает обработчик сигналов, закрывает closers в обратном порядке
// (ошибки только логируются) и последним закрывает лог-файл.
//
// Rule 11: отмена распространяется через context.Context.
func SetupGracefulShutdown(cancel context.CancelFunc, closers ...Closer) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			Info("Received signal, shutting down gracefully", "signal", sig.String())
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
		runClosers(closers)
		Close()
	}
}

func runClosers(closers []Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] == nil {
			continue
		}
		if err := closers[i](); err != nil {
			Warn("Shutdown: close failed", "index", i, "error", err)
		}
	}
}
