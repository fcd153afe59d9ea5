package infra

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOtherInstances(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(pm *mockProcessManager)
		want    []int
		wantErr bool
	}{
		{
			name: "only ourselves",
			setup: func(pm *mockProcessManager) {
				pm.addProcess("resmenu", 100)
			},
			want: []int{},
		},
		{
			name: "other instances sorted",
			setup: func(pm *mockProcessManager) {
				pm.addProcess("resmenu", 300)
				pm.addProcess("resmenu", 100)
				pm.addProcess("resmenu", 200)
			},
			want: []int{200, 300},
		},
		{
			name: "exited processes are ignored",
			setup: func(pm *mockProcessManager) {
				pm.addProcess("resmenu", 200)
				pm.runningPIDs[200] = false
			},
			want: []int{},
		},
		{
			name: "lookup failure",
			setup: func(pm *mockProcessManager) {
				pm.findErr = errors.New("sysctl failed")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := newMockProcessManager(100)
			tt.setup(pm)

			got, err := OtherInstances(pm, "resmenu")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestProcessManagerImpl_Self(t *testing.T) {
	pm := NewProcessManager()

	assert.Equal(t, os.Getpid(), pm.GetCurrentPID())
	assert.True(t, pm.IsRunning(os.Getpid()))
}
