package analyze

import (
	"fmt"
	"os"
	"strings"

	"github.com/scan-io-git/convex-doctor/internal/report"
)

// validateAnalyzeArgs validates the arguments provided to the analyze command.
func validateAnalyzeArgs(options *RunOptionsAnalyze, targetPath string) error {
	if !isSupportedFormat(options.Format) {
		return fmt.Errorf("the 'format' flag must be one of %s", strings.Join(report.Formats, ", "))
	}

	if options.Threads < 0 {
		return fmt.Errorf("the 'threads' flag must not be negative")
	}

	if options.FailBelow < 0 || options.FailBelow > 100 {
		return fmt.Errorf("the 'fail-below' flag must be between 0 and 100")
	}

	if options.OnlyNew && options.Diff == "" {
		return fmt.Errorf("the 'only-new' flag requires the 'diff' flag")
	}

	info, err := os.Stat(targetPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("the target path does not exist: %v", targetPath)
	}
	if err != nil {
		return fmt.Errorf("the target path is not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("the target path must be a directory: %v", targetPath)
	}

	return nil
}

func isSupportedFormat(format string) bool {
	if format == "" {
		return true
	}
	for _, f := range report.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}
