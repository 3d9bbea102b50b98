package lib

import (
	"os"

	"github.com/mattn/go-isatty"
)

var useColor = os.Getenv("NO_COLOR") == "" &&
	(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

func color(code, s string) string {
	if !useColor {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func Red(s string) string    { return color("31", s) }
func Green(s string) string  { return color("32", s) }
func Yellow(s string) string { return color("33", s) }
func Cyan(s string) string   { return color("36", s) }
