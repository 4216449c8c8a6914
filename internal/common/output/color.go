package output

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	// Check status colors
	Updated      = color.New(color.FgGreen, color.Bold)
	Unchanged    = color.New(color.FgBlue)
	Baseline     = color.New(color.FgCyan)
	Inconclusive = color.New(color.FgYellow)
	Failed       = color.New(color.FgRed)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgBlue)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
	Border  = color.New(color.FgRed)
)

// Message tags printed in front of status lines
const (
	TagSuccess = "[+] Success"
	TagNew     = "[+] NEW!"
	TagError   = "[!] Error"
	TagWarning = "[!] Warning"
	TagInfo    = "[*] Info"
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// StatusColor returns the appropriate color for a check status
func StatusColor(status string) *color.Color {
	switch status {
	case "updated":
		return Updated
	case "unchanged":
		return Unchanged
	case "baseline":
		return Baseline
	case "inconclusive":
		return Inconclusive
	case "failed":
		return Failed
	default:
		return color.New(color.Reset)
	}
}

// FormatStatus formats a status string with appropriate color
func FormatStatus(status string) string {
	c := StatusColor(status)
	return c.Sprintf("[%s]", status)
}

// FormatPackage formats a package name with color
func FormatPackage(pkg string) string {
	return Package.Sprint(pkg)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	fmt.Fprintf(color.Output, "%s - %s\n", Success.Sprint(TagSuccess), fmt.Sprintf(format, args...))
}

// PrintNew prints a new-update message
func PrintNew(format string, args ...interface{}) {
	fmt.Fprintf(color.Output, "%s - %s\n", Updated.Sprint(TagNew), fmt.Sprintf(format, args...))
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	fmt.Fprintf(color.Error, "%s - %s\n", Error.Sprint(TagError), fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	fmt.Fprintf(color.Output, "%s - %s\n", Warning.Sprint(TagWarning), fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	fmt.Fprintf(color.Output, "%s - %s\n", Info.Sprint(TagInfo), fmt.Sprintf(format, args...))
}

// Sprintf returns a colored string without printing
func Sprintf(c *color.Color, format string, args ...interface{}) string {
	return c.Sprintf(format, args...)
}

// Sprint returns a colored string without printing
func Sprint(c *color.Color, a ...interface{}) string {
	return c.Sprint(a...)
}

// BannerRule returns a "+-+-...+" rule at least width characters long
func BannerRule(width int) string {
	if width%2 == 0 {
		width++
	}
	b := make([]byte, width)
	for i := range b {
		b[i] = "+-"[i%2]
	}
	return string(b)
}

// Banner prints the boxed tool banner
func Banner(title string) {
	rule := BannerRule(len(title) + 2)
	fmt.Fprintln(color.Output, Border.Sprint(rule))
	fmt.Fprintf(color.Output, "%s%s%s\n", Border.Sprint("-"), Header.Sprint(title), Border.Sprint("-"))
	fmt.Fprintln(color.Output, Border.Sprint(rule))
	fmt.Fprintln(color.Output)
}
