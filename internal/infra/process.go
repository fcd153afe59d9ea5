// Package infra implements infrastructure concerns (display backends, state
// stores, keys, processes).
package infra

import (
	"os"
	"slices"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// FindByName returns PIDs of processes whose name contains the pattern
// (case-insensitive).
func (pm *ProcessManagerImpl) FindByName(pattern string) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var found []int
	patternLower := strings.ToLower(pattern)
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // exited while listing
		}
		if strings.Contains(strings.ToLower(name), patternLower) {
			found = append(found, int(p.Pid))
		}
	}
	return found, nil
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// OtherInstances returns the PIDs of running processes named like this
// program, excluding the current one.
func OtherInstances(pm domain.ProcessManager, name string) ([]int, error) {
	pids, err := pm.FindByName(name)
	if err != nil {
		return nil, err
	}
	self := pm.GetCurrentPID()
	pids = slices.DeleteFunc(pids, func(pid int) bool {
		return pid == self || !pm.IsRunning(pid)
	})
	slices.Sort(pids)
	return pids, nil
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
