package infra

// mockProcessManager is a test double for domain.ProcessManager.
type mockProcessManager struct {
	byName      map[string][]int
	runningPIDs map[int]bool
	currentPID  int
	findErr     error
}

func newMockProcessManager(current int) *mockProcessManager {
	return &mockProcessManager{
		byName:      make(map[string][]int),
		runningPIDs: make(map[int]bool),
		currentPID:  current,
	}
}

func (m *mockProcessManager) FindByName(pattern string) ([]int, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return append([]int(nil), m.byName[pattern]...), nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProcessManager) GetCurrentPID() int {
	return m.currentPID
}

// addProcess registers a running process under name.
func (m *mockProcessManager) addProcess(name string, pid int) {
	m.byName[name] = append(m.byName[name], pid)
	m.runningPIDs[pid] = true
}
