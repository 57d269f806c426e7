package procsupervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ChildStatus is one spawned service's last-observed health.
type ChildStatus struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Supervisor launches a fixed set of named services as children of the
// current binary (`os.Args[0] <name>`, the CLI surface every service
// binary already implements) and polls their /healthz endpoints.
type Supervisor struct {
	binaryPath string
	peerURLs   map[string]string
	log        zerolog.Logger
	httpClient *http.Client

	mu       sync.Mutex
	cmds     map[string]*exec.Cmd
	statuses map[string]ChildStatus
}

// New builds a Supervisor that will spawn the services named in peerURLs
// (service name -> base mcp URL, used to derive each /healthz endpoint).
func New(binaryPath string, peerURLs map[string]string, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		binaryPath: binaryPath,
		peerURLs:   peerURLs,
		log:        log.With().Str("service", "supervisor").Logger(),
		httpClient: &http.Client{Timeout: 3 * time.Second},
		cmds:       make(map[string]*exec.Cmd),
		statuses:   make(map[string]ChildStatus),
	}
}

// Spawn launches one child process per service name, inheriting the
// current environment. A child that exits is recorded as not-running;
// the supervisor does not restart it (single-pass per spec.md's
// non-retrying orchestration style).
func (s *Supervisor) Spawn(names []string) error {
	for _, name := range names {
		cmd := exec.Command(s.binaryPath, name)
		cmd.Env = os.Environ()
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("procsupervisor: starting %s: %w", name, err)
		}

		s.mu.Lock()
		s.cmds[name] = cmd
		s.statuses[name] = ChildStatus{Name: name, Running: true}
		s.mu.Unlock()

		go s.waitFor(name, cmd)
		s.log.Info().Str("child", name).Int("pid", cmd.Process.Pid).Msg("spawned service")
	}
	return nil
}

func (s *Supervisor) waitFor(name string, cmd *exec.Cmd) {
	err := cmd.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.statuses[name]
	status.Running = false
	if err != nil {
		status.Error = err.Error()
	}
	s.statuses[name] = status
	s.log.Warn().Str("child", name).Err(err).Msg("child service exited")
}

// PollHealth polls every spawned child's /healthz and records whether it
// responded successfully.
func (s *Supervisor) PollHealth(ctx context.Context) {
	s.mu.Lock()
	names := make([]string, 0, len(s.cmds))
	for name := range s.cmds {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		url := s.peerURLs[name]
		healthy, errMsg := s.checkOne(ctx, healthzURL(url))

		s.mu.Lock()
		status := s.statuses[name]
		status.Healthy = healthy
		status.Error = errMsg
		status.LastCheck = time.Now().UTC()
		s.statuses[name] = status
		s.mu.Unlock()
	}
}

func (s *Supervisor) checkOne(ctx context.Context, url string) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err.Error()
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("status %d", resp.StatusCode)
	}
	return true, ""
}

// Snapshot is the aggregate health view served at this supervisor's own
// /healthz.
type Snapshot struct {
	Self      SelfHealth             `json:"self"`
	Children  map[string]ChildStatus `json:"children"`
	SampledAt time.Time              `json:"sampled_at"`
}

func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	children := make(map[string]ChildStatus, len(s.statuses))
	for k, v := range s.statuses {
		children[k] = v
	}
	return Snapshot{Self: ReadSelfHealth(), Children: children, SampledAt: time.Now().UTC()}
}

// ServeHealth writes the aggregate snapshot as JSON, or msgpack when the
// caller sends `Accept: application/x-msgpack` (the internal
// inter-service health/heartbeat wire format).
func (s *Supervisor) ServeHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	if r.Header.Get("Accept") == "application/x-msgpack" {
		payload, err := msgpack.Marshal(snap)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-msgpack")
		_, _ = w.Write(payload)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// Shutdown signals every child to terminate and waits briefly.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	cmds := make([]*exec.Cmd, 0, len(s.cmds))
	for _, cmd := range s.cmds {
		cmds = append(cmds, cmd)
	}
	s.mu.Unlock()

	for _, cmd := range cmds {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(os.Interrupt)
		}
	}
	time.Sleep(2 * time.Second)
	for _, cmd := range cmds {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
}

func healthzURL(mcpURL string) string {
	// mcpURL is ".../mcp"; /healthz is a sibling route on the same server.
	if len(mcpURL) >= 4 && mcpURL[len(mcpURL)-4:] == "/mcp" {
		return mcpURL[:len(mcpURL)-4] + "/healthz"
	}
	return mcpURL + "/healthz"
}
