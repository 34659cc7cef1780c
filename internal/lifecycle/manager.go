package lifecycle

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"llamactl/internal/config"
)

// Resolver is the slice of the catalog the lifecycle manager needs.
type Resolver interface {
	Resolve(slug string) (string, error)
	TouchLastUsed(slug string) error
}

// Status describes the server serving a slug after EnsureRunning.
type Status struct {
	Slug      string `json:"slug"`
	PID       int32  `json:"pid"`
	Port      int    `json:"port"`
	LogPath   string `json:"log_path,omitempty"`
	Started   bool   `json:"started"`
	ModelPath string `json:"model_path"`
}

// Manager ensures an inference server process is running and reachable
// for a resolved model file. Process state is queried fresh from the OS
// on every call; the state file only narrows the search.
type Manager struct {
	cfg   config.Config
	cat   Resolver
	procs ProcessTable
	state *StateFile
	log   zerolog.Logger

	pollInterval   time.Duration
	startupTimeout time.Duration
	killGrace      time.Duration

	// Injection points for tests.
	spawn func(bin string, args []string, logPath string) (int32, error)
	dial  func(addr string, timeout time.Duration) error
}

// New constructs a Manager bound to cfg, the catalog and the OS process
// table.
func New(cfg config.Config, cat Resolver, procs ProcessTable, log zerolog.Logger) *Manager {
	m := &Manager{
		cfg:            cfg,
		cat:            cat,
		procs:          procs,
		state:          NewStateFile(cfg.StateFilePath()),
		log:            log,
		pollInterval:   time.Second,
		startupTimeout: cfg.StartupTimeout(),
		killGrace:      500 * time.Millisecond,
	}
	if m.startupTimeout <= 0 {
		m.startupTimeout = 300 * time.Second
	}
	m.spawn = m.spawnProcess
	m.dial = func(addr string, timeout time.Duration) error {
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return err
		}
		return conn.Close()
	}
	return m
}

// EnsureRunning guarantees a server is serving slug's model file. An
// already-matching process is returned as-is without a health check; the
// usage timestamp is bumped either way.
func (m *Manager) EnsureRunning(ctx context.Context, slug string) (Status, error) {
	path, err := m.cat.Resolve(slug)
	if err != nil {
		return Status{}, err
	}
	// Record "last requested", not "last newly started".
	if err := m.cat.TouchLastUsed(slug); err != nil {
		m.log.Warn().Err(err).Str("slug", slug).Msg("could not bump last_used")
	}

	if st, ok, err := m.findRunning(slug, path); err != nil {
		return Status{}, err
	} else if ok {
		m.log.Info().Str("slug", slug).Int32("pid", st.PID).Int("port", st.Port).Msg("server already running")
		return st, nil
	}

	logPath := filepath.Join(m.cfg.LogDir(), slug+".log")
	args := append([]string{"-m", path, "--host", m.cfg.Host, "--port", fmt.Sprint(m.cfg.Port)}, m.cfg.ServerArgs...)
	pid, err := m.spawn(m.cfg.ServerBin, args, logPath)
	if err != nil {
		return Status{}, fmt.Errorf("spawn %s: %w", m.cfg.ServerBin, err)
	}
	m.log.Info().Str("slug", slug).Int32("pid", pid).Int("port", m.cfg.Port).Msg("server spawned")

	// Registered before the wait so an interrupted wait still leaves the
	// process findable by ps/kill.
	entry := StateEntry{PID: pid, Port: m.cfg.Port, ModelPath: path, LogPath: logPath, StartedAt: time.Now()}
	if err := m.state.Put(slug, entry); err != nil {
		m.log.Warn().Err(err).Str("slug", slug).Msg("could not record server state")
	}

	if err := m.waitForReady(ctx, slug, logPath); err != nil {
		return Status{}, err
	}
	return Status{Slug: slug, PID: pid, Port: m.cfg.Port, LogPath: logPath, Started: true, ModelPath: path}, nil
}

// findRunning looks for a live server for path: the state file entry is
// verified against the process table, then the table is scanned for a
// command line naming both the server binary and the model path.
func (m *Manager) findRunning(slug, path string) (Status, bool, error) {
	if e, ok, err := m.state.Get(slug); err == nil && ok {
		if m.procs.Alive(e.PID) && m.cmdlineMatches(e.PID, path) {
			return Status{Slug: slug, PID: e.PID, Port: e.Port, LogPath: e.LogPath, ModelPath: path}, true, nil
		}
		// Stale entry: the pid died or now runs something else.
		_ = m.state.Delete(slug)
	}
	entries, err := m.procs.List()
	if err != nil {
		return Status{}, false, fmt.Errorf("list processes: %w", err)
	}
	bin := filepath.Base(m.cfg.ServerBin)
	for _, e := range entries {
		if strings.Contains(e.Cmdline, bin) && strings.Contains(e.Cmdline, path) {
			st := Status{Slug: slug, PID: e.PID, Port: m.cfg.Port, ModelPath: path}
			_ = m.state.Put(slug, StateEntry{PID: e.PID, Port: m.cfg.Port, ModelPath: path, StartedAt: time.Now()})
			return st, true, nil
		}
	}
	return Status{}, false, nil
}

func (m *Manager) cmdlineMatches(pid int32, path string) bool {
	entries, err := m.procs.List()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.PID == pid {
			return strings.Contains(e.Cmdline, path)
		}
	}
	return false
}

// waitForReady polls TCP reachability on the configured port once per
// interval until the ceiling. On timeout the spawned process is left
// running and the caller is pointed at its log.
func (m *Manager) waitForReady(ctx context.Context, slug, logPath string) error {
	addr := m.cfg.ServerAddr()
	deadline := time.Now().Add(m.startupTimeout)
	polls := 0
	for {
		if err := m.dial(addr, m.pollInterval); err == nil {
			m.log.Info().Str("slug", slug).Str("addr", addr).Msg("server ready")
			return nil
		}
		if time.Now().After(deadline) {
			return ErrStartupTimeout(slug, logPath)
		}
		polls++
		if polls%10 == 0 {
			m.log.Info().Str("slug", slug).Int("polls", polls).Msg("still waiting for server")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// Kill signals every process serving slug's model. Best effort per
// process: signal failures are logged, not returned. NotRunning when no
// process matched.
func (m *Manager) Kill(slug string) error {
	var path string
	if p, err := m.cat.Resolve(slug); err == nil {
		path = p
	}
	pids := map[int32]bool{}
	if e, ok, err := m.state.Get(slug); err == nil && ok {
		if m.procs.Alive(e.PID) && m.cmdlineMatches(e.PID, e.ModelPath) {
			pids[e.PID] = true
		} else {
			// Stale entry: the pid died or was recycled by something else.
			_ = m.state.Delete(slug)
		}
	}
	entries, err := m.procs.List()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}
	bin := filepath.Base(m.cfg.ServerBin)
	for _, e := range entries {
		if !strings.Contains(e.Cmdline, bin) {
			continue
		}
		if (path != "" && strings.Contains(e.Cmdline, path)) || strings.Contains(e.Cmdline, slug) {
			pids[e.PID] = true
		}
	}
	if len(pids) == 0 {
		return ErrNotRunning(slug)
	}
	for pid := range pids {
		if err := m.procs.Terminate(pid); err != nil {
			m.log.Warn().Err(err).Int32("pid", pid).Msg("terminate failed")
		} else {
			m.log.Info().Int32("pid", pid).Str("slug", slug).Msg("sent terminate")
		}
	}
	_ = m.state.Delete(slug)
	return nil
}

// KillAll signals every server-binary process, waits briefly, then
// force-kills survivors. Best effort, no final verification.
func (m *Manager) KillAll() (int, error) {
	entries, err := m.procs.List()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}
	bin := filepath.Base(m.cfg.ServerBin)
	var matched []int32
	for _, e := range entries {
		if strings.Contains(e.Cmdline, bin) {
			matched = append(matched, e.PID)
		}
	}
	for _, pid := range matched {
		if err := m.procs.Terminate(pid); err != nil {
			m.log.Warn().Err(err).Int32("pid", pid).Msg("terminate failed")
		}
	}
	if len(matched) > 0 {
		time.Sleep(m.killGrace)
		for _, pid := range matched {
			if m.procs.Alive(pid) {
				if err := m.procs.Kill(pid); err != nil {
					m.log.Warn().Err(err).Int32("pid", pid).Msg("kill failed")
				}
			}
		}
	}
	if err := m.state.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("could not clear server state")
	}
	return len(matched), nil
}

// Ps returns the recorded servers with their liveness verified against
// the process table. Dead entries are pruned as a side effect.
func (m *Manager) Ps() ([]Status, error) {
	all, err := m.state.All()
	if err != nil {
		return nil, err
	}
	var out []Status
	for slug, e := range all {
		if !m.procs.Alive(e.PID) || !m.cmdlineMatches(e.PID, e.ModelPath) {
			_ = m.state.Delete(slug)
			continue
		}
		out = append(out, Status{Slug: slug, PID: e.PID, Port: e.Port, LogPath: e.LogPath, ModelPath: e.ModelPath})
	}
	return out, nil
}

// spawnProcess starts the server binary detached in its own process
// group with stdout/stderr appended to logPath.
func (m *Manager) spawnProcess(bin string, args []string, logPath string) (int32, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return 0, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	cmd := exec.Command(bin, args...)
	cmd.Stdout = f
	cmd.Stderr = f
	// Own process group so the server outlives this invocation and does
	// not receive the controlling terminal's signals.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := int32(cmd.Process.Pid)
	if err := cmd.Process.Release(); err != nil {
		m.log.Warn().Err(err).Int32("pid", pid).Msg("release process handle")
	}
	return pid, nil
}
