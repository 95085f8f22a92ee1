/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package logger

import (
	"fmt"
	"os"
	"regexp"

	specs "github.com/EmbarkStudios/cargo-fetcher/pkg/specs"

	"github.com/kyokomi/emoji"
	"github.com/logrusorgru/aurora"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	Config *specs.Config
	Logger *zap.Logger
	Aurora aurora.Aurora
}

var defaultLogger *Logger = nil

func NewLogger(config *specs.Config) *Logger {
	return &Logger{
		Logger: nil,
		Aurora: aurora.NewAurora(config.GetLogging().Color),
		Config: config,
	}
}

func (l *Logger) GetAurora() aurora.Aurora {
	return l.Aurora
}

func (l *Logger) SetAsDefault() {
	defaultLogger = l
}

func GetDefaultLogger() *Logger {
	return defaultLogger
}

func (l *Logger) InitLogger2File() error {
	var err error

	// TODO: test permission for open logfile.
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{l.Config.GetLogging().Path}
	cfg.Level = level2AtomicLevel(l.Config.GetLogging().Level)
	cfg.ErrorOutputPaths = []string{}
	if l.Config.GetLogging().JsonFormat {
		cfg.Encoding = "json"
	} else {
		cfg.Encoding = "console"
	}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l.Logger, err = cfg.Build()
	if err != nil {
		fmt.Fprint(os.Stderr, "Error on initialize file logger: "+err.Error()+"\n")
		return err
	}

	return nil
}

func level2Number(level string) int {
	switch level {
	case "error":
		return 0
	case "warning":
		return 1
	case "info":
		return 2
	default:
		return 3
	}
}

func (l *Logger) log2File(level, msg string, fields ...zap.Field) {
	switch level {
	case "error":
		l.Logger.Error(msg, fields...)
	case "warning":
		l.Logger.Warn(msg, fields...)
	case "info":
		l.Logger.Info(msg, fields...)
	default:
		l.Logger.Debug(msg, fields...)
	}
}

func level2AtomicLevel(level string) zap.AtomicLevel {
	switch level {
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	case "warning":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	}
}

func (l *Logger) shouldLog(level string) bool {
	var confLevel int
	if l.Config.GetGeneral().HasDebug() {
		confLevel = 3
	} else {
		confLevel = level2Number(l.Config.GetLogging().Level)
	}
	return level2Number(level) <= confLevel
}

func buildMessage(msg ...interface{}) string {
	var message string
	for idx, m := range msg {
		if idx > 0 {
			message += " "
		}
		message += fmt.Sprintf("%v", m)
	}
	return message
}

func (l *Logger) render(level string, withoutColor bool, message string) string {
	var levelMsg string

	if withoutColor || !l.Config.GetLogging().Color {
		levelMsg = message
	} else {
		switch level {
		case "warning":
			levelMsg = l.Aurora.Bold(l.Aurora.Yellow(":construction:" + message)).String()
		case "debug":
			levelMsg = l.Aurora.White(message).String()
		case "info":
			levelMsg = l.Aurora.Bold(message).String()
		case "error":
			levelMsg = l.Aurora.Bold(l.Aurora.Red(":bomb:" + message + ":fire:")).BgBlack().String()
		}
	}

	if l.Config.GetLogging().EnableEmoji {
		levelMsg = emoji.Sprint(levelMsg)
	} else {
		re := regexp.MustCompile(`[:][\w]+[:]`)
		levelMsg = re.ReplaceAllString(levelMsg, "")
	}

	return levelMsg
}

func (l *Logger) Msg(level string, withoutColor, ln bool, msg ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	message := buildMessage(msg...)
	levelMsg := l.render(level, withoutColor, message)

	if l.Logger != nil {
		l.log2File(level, message)
	}

	if ln {
		fmt.Println(levelMsg)
	} else {
		fmt.Print(levelMsg)
	}
}

// KrateEvent logs a crate mirror/sync outcome with structured fields
// (crate name, version, owning registry, and backend key) alongside
// the usual console rendering, so a JSON-formatted log file carries
// enough to correlate a failure back to a specific lockfile entry.
func (l *Logger) KrateEvent(level, action, name, version, registryID, key string, err error) {
	if !l.shouldLog(level) {
		return
	}

	message := fmt.Sprintf("%s %s-%s (%s)", action, name, version, registryID)
	if err != nil {
		message += ": " + err.Error()
	}
	levelMsg := l.render(level, false, message)

	if l.Logger != nil {
		fields := []zap.Field{
			zap.String("crate", name),
			zap.String("version", version),
			zap.String("registry", registryID),
			zap.String("key", key),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		l.log2File(level, message, fields...)
	}

	fmt.Println(levelMsg)
}

// GitEvent logs a git-dependency mirror/sync outcome with structured
// fields (repo ident, pinned revision, and backend key).
func (l *Logger) GitEvent(level, action, repoIdent, revision, key string, err error) {
	if !l.shouldLog(level) {
		return
	}

	message := fmt.Sprintf("%s %s@%s", action, repoIdent, revision)
	if err != nil {
		message += ": " + err.Error()
	}
	levelMsg := l.render(level, false, message)

	if l.Logger != nil {
		fields := []zap.Field{
			zap.String("repo_ident", repoIdent),
			zap.String("revision", revision),
			zap.String("key", key),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		l.log2File(level, message, fields...)
	}

	fmt.Println(levelMsg)
}

// IndexEvent logs a registry-index mirror/sync outcome with the
// registry id and the freshness hash that identifies the snapshot.
func (l *Logger) IndexEvent(level, action, registryID, hash string, err error) {
	if !l.shouldLog(level) {
		return
	}

	message := fmt.Sprintf("%s index %s", action, registryID)
	if hash != "" {
		message += " @ " + hash
	}
	if err != nil {
		message += ": " + err.Error()
	}
	levelMsg := l.render(level, false, message)

	if l.Logger != nil {
		fields := []zap.Field{
			zap.String("registry", registryID),
			zap.String("index_hash", hash),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		l.log2File(level, message, fields...)
	}

	fmt.Println(levelMsg)
}

func (l *Logger) Warning(mess ...interface{}) {
	l.Msg("warning", false, true, mess...)
}

func (l *Logger) Debug(mess ...interface{}) {
	l.Msg("debug", false, true, mess...)
}

func (l *Logger) DebugC(mess ...interface{}) {
	l.Msg("debug", true, true, mess...)
}

func (l *Logger) Info(mess ...interface{}) {
	l.Msg("info", false, true, mess...)
}

func (l *Logger) InfoC(mess ...interface{}) {
	l.Msg("info", true, true, mess...)
}

func (l *Logger) Error(mess ...interface{}) {
	l.Msg("error", false, true, mess...)
}

func (l *Logger) Fatal(mess ...interface{}) {
	l.Error(mess...)
	os.Exit(1)
}
