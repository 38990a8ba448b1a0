package utils

import (
	"github.com/fatih/color"
)

// Colors used by the printers. They are functions so that CanColorize picks
// up option changes made after package initialization.
var (
	KeywordColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiMagenta, color.Bold).SprintFunc())(is...)
	}
	LevelColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
	}
	BlockColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	}
	NameColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
	}
	StmtColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
	}
	ValueColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgBlue).SprintFunc())(is...)
	}
	ErrorColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	}
	OkColor = func(is ...interface{}) string {
		return CanColorize(color.New(color.FgGreen).SprintFunc())(is...)
	}
)
