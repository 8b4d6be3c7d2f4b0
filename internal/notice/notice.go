// Package notice carries the short user-facing messages produced by form
// operations. The browser shows them as toasts.
package notice

import "fmt"

// Level classifies a notice for presentation.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is a single user-facing message.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func Success(format string, args ...any) Notice {
	return Notice{Level: LevelSuccess, Message: fmt.Sprintf(format, args...)}
}

func Info(format string, args ...any) Notice {
	return Notice{Level: LevelInfo, Message: fmt.Sprintf(format, args...)}
}

// Error turns err into an error notice. A nil error yields the zero Notice.
func Error(err error) Notice {
	if err == nil {
		return Notice{}
	}
	return Notice{Level: LevelError, Message: err.Error()}
}
