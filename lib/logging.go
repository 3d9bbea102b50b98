package lib

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// LoggerStruct writes caller-prefixed lines to stderr. Set LOGGING=no to silence
// everything but Fatal.
type LoggerStruct struct {
	Print    func(args ...interface{})
	Flush    func()
	disabled bool
}

var Logger = NewLogger(os.Stderr)

func NewLogger(w io.Writer) *LoggerStruct {
	return &LoggerStruct{
		Print: func(args ...interface{}) {
			_, _ = fmt.Fprint(w, args...)
		},
		Flush:    func() {},
		disabled: strings.ToLower(os.Getenv("LOGGING") + " ")[:1] == "n",
	}
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return ""
	}
	parts := strings.Split(file, "/")
	if len(parts) >= 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d: ", file, line)
}

func join(v []interface{}) string {
	xs := make([]string, 0, len(v))
	for _, x := range v {
		xs = append(xs, fmt.Sprint(x))
	}
	return strings.Join(xs, " ")
}

func (l *LoggerStruct) Println(v ...interface{}) {
	if !l.disabled {
		l.Print(caller(), join(v), "\n")
	}
}

func (l *LoggerStruct) Printf(format string, v ...interface{}) {
	if !l.disabled {
		l.Print(fmt.Sprintf(caller()+format, v...))
	}
}

// Cmd logs a command line about to run, quoted so it can be pasted into a shell.
func (l *LoggerStruct) Cmd(argv []string) {
	if !l.disabled {
		l.Print(caller(), "$ ", FmtCmd(argv), "\n")
	}
}

func (l *LoggerStruct) Fatal(v ...interface{}) {
	l.Print(caller(), join(v), "\n")
	l.Flush()
	os.Exit(1)
}

func (l *LoggerStruct) Fatalf(format string, v ...interface{}) {
	l.Print(fmt.Sprintf(caller()+format, v...))
	l.Flush()
	os.Exit(1)
}
