package nauta

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	listProcessNames = defaultListProcessNames
	runCommand       = defaultRunCommand
)

// IsProcessRunning reports whether any running process name contains
// name, ignoring case. Processes that vanish or deny access while being
// inspected are skipped.
func IsProcessRunning(ctx context.Context, name string) bool {
	if name == "" {
		return false
	}
	names, err := listProcessNames(ctx)
	if err != nil {
		return false
	}
	want := strings.ToLower(name)
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return true
		}
	}
	return false
}

func defaultListProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// RunHelper runs an external helper attached to the terminal, so a sudo
// password prompt reaches the user.
func RunHelper(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty helper command")
	}
	return runCommand(ctx, argv)
}

func defaultRunCommand(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
