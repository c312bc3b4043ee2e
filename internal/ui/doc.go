// Package ui provides semantic text formatting for CLI output.
//
// This package defines formatters for different types of content (code,
// paths, errors, etc.) that render appropriately based on terminal
// capabilities. When colors are available, content is colorized. When
// NO_COLOR is set or the terminal doesn't support colors, text-based
// decorations (backticks, quotes) are used instead.
//
//	ui.Code.Sprint("tmvault open")         // Commands and code
//	ui.Path.Sprint("/media/vault")         // File paths
//	ui.Success.Sprint("✓")                 // Success indicators
//	ui.Error.Sprint("✗")                   // Error indicators
//	ui.Info.Sprint("→")                    // Informational hints
//	ui.Highlight.Sprint("notes.txt")       // User values
package ui
