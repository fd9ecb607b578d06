package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"title":        "is required",
		"release_date": "must match layout 2006-01-02",
		"genres[0]":    "is required",
	}}
	want := "genres[0]: is required; release_date: must match layout 2006-01-02; title: is required"
	for i := 0; i < 20; i++ {
		if got := err.Error(); got != want {
			t.Fatalf("Error() = %q, want %q", got, want)
		}
	}
}

func TestValidationErrorEmpty(t *testing.T) {
	if got := (&ValidationError{}).Error(); got != "validation failed" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestServiceLoggerTaggedWithComponent(t *testing.T) {
	var buf bytes.Buffer
	svc := New(nil, nil, nil, Options{Logger: zerolog.New(&buf)})
	svc.logger.Info().Msg("ready")
	if !strings.Contains(buf.String(), `"component":"catalog"`) {
		t.Fatalf("log line missing component: %s", buf.String())
	}
}
