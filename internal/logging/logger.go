package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger пишет в консоль и, опционально, в файл компонента
type Logger struct {
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// Init инициализирует глобальный логгер для указанного компонента.
// Файл логов создаётся в директории logs с временной меткой в имени.
func Init(component string) error {
	if err := os.MkdirAll("logs", 0755); err != nil {
		return fmt.Errorf("ошибка создания директории logs: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join("logs", fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	globalMu.Lock()
	globalLogger = &Logger{
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		fileLogger:      log.New(file, "", log.LstdFlags),
		file:            file,
		minConsoleLevel: INFO,
		minFileLevel:    DEBUG,
	}
	globalMu.Unlock()
	return nil
}

// SetConsoleLevel задаёт минимальный уровень сообщений в консоли
func SetConsoleLevel(level LogLevel) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		globalLogger.minConsoleLevel = level
	}
}

// Close закрывает файл логов
func Close() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil && globalLogger.file != nil {
		globalLogger.file.Close()
		globalLogger.file = nil
		globalLogger.fileLogger = nil
	}
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) {
	logMessage(TRACE, format, args...)
}

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) {
	logMessage(DEBUG, format, args...)
}

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) {
	logMessage(INFO, format, args...)
}

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) {
	logMessage(WARN, format, args...)
}

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) {
	logMessage(ERROR, format, args...)
}

// logMessage форматирует сообщение и пишет его во все назначения.
// Без инициализации сообщения молча отбрасываются — библиотечный код
// не обязан настраивать логирование, чтобы им пользоваться.
func logMessage(level LogLevel, format string, args ...interface{}) {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger == nil {
		return
	}

	message := fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, args...))
	if level >= logger.minConsoleLevel {
		logger.consoleLogger.Println(message)
	}
	if logger.fileLogger != nil && level >= logger.minFileLevel {
		logger.fileLogger.Println(message)
	}
}
