package cli

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/skelly-dev/typenav/internal/parser"
)

func IsCorruptStateError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

// ReportParseIssues logs one line per issue. Files with syntax errors are
// still indexed with whatever declarations were recovered.
func ReportParseIssues(logger *slog.Logger, issues []parser.ParseIssue) {
	for _, issue := range issues {
		attrs := []any{"file", issue.File, "message", issue.Message}
		if issue.Language != "" {
			attrs = append(attrs, "language", issue.Language)
		}
		if issue.Severity == "error" {
			logger.Error("parse issue", attrs...)
			continue
		}
		logger.Warn("parse issue", attrs...)
	}
}
