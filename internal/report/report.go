package report

import (
	"fmt"
	"os"

	"github.com/bassista/go_autosave/internal/logger"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
)

// Failure describes one failed auto-save.
type Failure struct {
	SessionID string
	ProfileID string
	Section   string
	Attempt   uint64
	Err       error
}

// Reporter receives save failures. Implementations must not block.
type Reporter interface {
	ReportSaveFailure(f Failure)
}

// LogReporter only logs failures.
type LogReporter struct{}

func (LogReporter) ReportSaveFailure(f Failure) {
	logger.WithSession("report", f.SessionID).Warnf("save %d of %s/%s failed: %v", f.Attempt, f.ProfileID, f.Section, f.Err)
}

// notifier is the part of *honeybadger.Client the reporter uses.
type notifier interface {
	Notify(err interface{}, extra ...interface{}) (string, error)
}

// HoneybadgerReporter logs failures and forwards them to Honeybadger.
type HoneybadgerReporter struct {
	client notifier
	log    LogReporter
}

func NewHoneybadgerReporter(apiKey, env string) *HoneybadgerReporter {
	return &HoneybadgerReporter{
		client: honeybadger.New(honeybadger.Configuration{APIKey: apiKey, Env: env}),
	}
}

func (r *HoneybadgerReporter) ReportSaveFailure(f Failure) {
	r.log.ReportSaveFailure(f)

	_, err := r.client.Notify(
		fmt.Errorf("auto-save failed: %w", f.Err),
		honeybadger.Context{
			"session": f.SessionID,
			"profile": f.ProfileID,
			"section": f.Section,
			"attempt": f.Attempt,
		},
		honeybadger.Tags{"autosave", "save_failed"},
	)
	if err != nil {
		logger.WithComponent("report").Errorf("honeybadger notify: %v", err)
	}
}

// NewFromEnv returns a Honeybadger reporter when HONEYBADGER_API_KEY is set,
// otherwise a LogReporter.
func NewFromEnv() Reporter {
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		return LogReporter{}
	}
	logger.WithComponent("report").Info("save failures are reported to Honeybadger")
	return NewHoneybadgerReporter(apiKey, os.Getenv("GO_ENV"))
}
