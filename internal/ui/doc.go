// Package ui styles the command line output with lipgloss.
//
// A [Palette] names the handful of styles the commands use (titles, success, errors,
// warnings, help). [Palette.Summary] renders a titled block of aligned key/value
// lines, used for crawl and clustering reports. [Palette.Progress] renders one
// progress update as a single line.
package ui
