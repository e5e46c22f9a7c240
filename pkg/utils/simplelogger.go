// Package utils предоставляет простой файловый логгер.
//
// Логгер создаёт appforge-*.log файл в заданной директории.
// До InitLogger все вызовы Info/Error/... ничего не делают, поэтому
// библиотечные пакеты логируют свободно, а тесты остаются тихими.
// Thread-safe через sync.Mutex.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	logFile      *os.File
	logMutex     sync.Mutex
	debugEnabled bool
)

// InitLogger создает/открывает .log файл в директории dir ("" - текущая).
//
// Имя файла: appforge-YYYY-MM-DD-HH-MM.log (например, appforge-2025-12-27-15-30.log).
// debug включает запись DEBUG сообщений.
// Повторный вызов ничего не делает и возвращает путь открытого файла.
func InitLogger(dir string, debug bool) (string, error) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile != nil {
		return logFile.Name(), nil
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02-15-04")
	filename := filepath.Join(dir, fmt.Sprintf("appforge-%s.log", timestamp))

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = f
	debugEnabled = debug
	// Пишем напрямую без Info чтобы избежать deadlock (мьютекс уже захвачен)
	writeLine(formatLine("INFO", "Logger initialized", "file", filename, "debug", debug))

	return filename, nil
}

// Info - информационное сообщение.
func Info(msg string, keyvals ...any) {
	log("INFO", msg, keyvals...)
}

// Error - сообщение об ошибке.
func Error(msg string, keyvals ...any) {
	log("ERROR", msg, keyvals...)
}

// Debug - отладочное сообщение. Пишется только если логгер инициализирован с debug.
func Debug(msg string, keyvals ...any) {
	log("DEBUG", msg, keyvals...)
}

// Warn - предупреждение.
func Warn(msg string, keyvals ...any) {
	log("WARN", msg, keyvals...)
}

func log(level, msg string, keyvals ...any) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile == nil {
		return
	}
	if level == "DEBUG" && !debugEnabled {
		return
	}

	writeLine(formatLine(level, msg, keyvals...))
}

// formatLine: [YYYY-MM-DD HH:MM:SS] LEVEL: message key1=value1 key2=value2
//
// Непарный последний ключ выводится как key=<missing>.
func formatLine(level, msg string, keyvals ...any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05"), level, msg)

	for i := 0; i < len(keyvals); i += 2 {
		if i+1 < len(keyvals) {
			fmt.Fprintf(&sb, " %v=%v", keyvals[i], keyvals[i+1])
		} else {
			fmt.Fprintf(&sb, " %v=<missing>", keyvals[i])
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// writeLine пишет строку в файл. Вызывается под logMutex.
// При ошибке записи - fallback на stderr.
func writeLine(line string) {
	if _, err := logFile.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "%s", line)
		fmt.Fprintf(os.Stderr, "[LOGGER ERROR: WriteString failed: %v]\n", err)
		return
	}

	if err := logFile.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Sync failed: %v]\n", err)
	}
}

// Close закрывает лог-файл.
//
// Вызывается через defer в main().
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Close failed: %v]\n", err)
		}
		logFile = nil
	}
}
