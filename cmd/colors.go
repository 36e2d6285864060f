package cmd

import (
	"github.com/fatih/color"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatRiskWithColor(level scan.RiskLevel) string {
	switch level {
	case scan.RiskGood:
		return colorSuccess(string(level))
	case scan.RiskHigh:
		return colorWarn(string(level))
	case scan.RiskError:
		return colorError(string(level))
	default:
		return string(level)
	}
}
