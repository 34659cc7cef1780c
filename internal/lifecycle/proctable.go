package lifecycle

import (
	"github.com/shirou/gopsutil/v4/process"
)

// ProcEntry is one live process as seen by the operating system.
type ProcEntry struct {
	PID     int32
	Cmdline string
}

// ProcessTable abstracts the OS process list and signal delivery. Queries
// hit the live process table on every call; results are never cached.
type ProcessTable interface {
	// List returns all processes whose command line could be read.
	List() ([]ProcEntry, error)
	// Alive reports whether pid currently exists.
	Alive(pid int32) bool
	// Terminate sends a graceful termination signal to pid.
	Terminate(pid int32) error
	// Kill forcibly kills pid.
	Kill(pid int32) error
}

// osProcessTable implements ProcessTable against the real process table.
type osProcessTable struct{}

// NewOSProcessTable returns the gopsutil-backed process table.
func NewOSProcessTable() ProcessTable { return osProcessTable{} }

func (osProcessTable) List() ([]ProcEntry, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	entries := make([]ProcEntry, 0, len(procs))
	for _, p := range procs {
		// Processes we cannot inspect (permissions, raced exits) are skipped.
		cmd, err := p.Cmdline()
		if err != nil || cmd == "" {
			continue
		}
		entries = append(entries, ProcEntry{PID: p.Pid, Cmdline: cmd})
	}
	return entries, nil
}

func (osProcessTable) Alive(pid int32) bool {
	ok, err := process.PidExists(pid)
	return err == nil && ok
}

func (osProcessTable) Terminate(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	return p.Terminate()
}

func (osProcessTable) Kill(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
