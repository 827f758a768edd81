// ABOUTME: Tests for the CLI help output and environment status display.
package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestPrintHelpMentionsCommandsAndFlags(t *testing.T) {
	var buf bytes.Buffer
	printHelp(&buf, "1.2.3")
	out := buf.String()

	for _, want := range []string{
		"retroboard 1.2.3",
		"watch",
		"stack",
		"react",
		"-board",
		"RETRO_SERVER_URL",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestEnvStatus(t *testing.T) {
	os.Unsetenv("RETRO_HELP_TEST_VAR")
	if got := envStatus("RETRO_HELP_TEST_VAR"); got != "[not set]" {
		t.Errorf("envStatus = %q", got)
	}
	t.Setenv("RETRO_HELP_TEST_VAR", "x")
	if got := envStatus("RETRO_HELP_TEST_VAR"); got != "[set]" {
		t.Errorf("envStatus = %q", got)
	}
}
