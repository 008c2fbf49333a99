package logger

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

// Formatter renders "[time] [LEVEL] [prefix]: message" lines
type Formatter struct {
	Colors bool
}

// Format implements logrus.Formatter
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := levelOf(entry)
	prefix, _ := entry.Data[fieldPrefix].(string)

	var b bytes.Buffer
	if f.Colors {
		fmt.Fprintf(&b, "[%s] [%s%s%s] [%s]: %s\n",
			entry.Time.Format(timestampFormat), level.Color(), level.String(), colorReset, prefix, entry.Message)
	} else {
		fmt.Fprintf(&b, "[%s] [%s] [%s]: %s\n",
			entry.Time.Format(timestampFormat), level.String(), prefix, entry.Message)
	}
	return b.Bytes(), nil
}

// levelOf recovers the bot level of an entry. Entries logged straight
// through logrus (discordgo, gin) fall back on the logrus level.
func levelOf(entry *logrus.Entry) LogLevel {
	if level, ok := entry.Data[fieldLevel].(LogLevel); ok {
		return level
	}
	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return LevelCritical
	case logrus.ErrorLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	default:
		return LevelInfo
	}
}
