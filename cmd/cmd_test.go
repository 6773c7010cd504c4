package cmd

import (
	"testing"

	"github.com/nautacli/nauta/cmd/common"
)

func TestExecute_Version(t *testing.T) {
	stdout, _ := captureOutput(func() {
		err := Execute([]string{"nauta", "version"}, BuildArgs{
			Version:   "1.2.3",
			BuildType: "release",
			Date:      "2026-10-01",
			Commit:    "abcdef",
		})
		if err != nil {
			t.Errorf("Execute: %v", err)
		}
	})
	assertContains(t, stdout, "nauta 1.2.3-release")
	assertContains(t, stdout, "Build: 2026-10-01=abcdef")
	if common.VersionCmdStr == "" {
		t.Error("VersionCmdStr not set")
	}
}

func TestExecute_Status(t *testing.T) {
	setupCmdTest(t)

	stdout, _ := captureOutput(func() {
		if err := Execute([]string{"nauta", "status"}, BuildArgs{}); err != nil {
			t.Errorf("Execute: %v", err)
		}
	})
	assertContains(t, stdout, "Session open:  no")
}

func TestExecute_DebugFlag(t *testing.T) {
	setupCmdTest(t)

	captureOutput(func() {
		if err := Execute([]string{"nauta", "--debug", "is-online"}, BuildArgs{}); err != nil {
			t.Errorf("Execute: %v", err)
		}
	})
	if !debugMode {
		t.Error("--debug was not picked up")
	}
}
