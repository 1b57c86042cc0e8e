package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process runs the same executable.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Executable appends ".exe" to name on Windows.
func Executable(name string) string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return name + ".exe"
	}

	return name
}

// Current returns the executable name of this process.
func Current() string {
	return filepath.Base(os.Args[0])
}

// Others returns the ids of other processes running executable.
func Others(executable string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != executable {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// Ensure returns ErrAlreadyRunning when another process runs executable.
func Ensure(executable string) error {
	pids, err := Others(executable)
	if err != nil {
		return err
	}

	if len(pids) > 0 {
		return fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, executable, pids[0])
	}

	return nil
}
