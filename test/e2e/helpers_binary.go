//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// fluidbcServer manages a running fluidbc server process.
type fluidbcServer struct {
	cmd     *exec.Cmd
	dataDir string
	address string
	port    int
	apiKey  string
	logFile string
	env     []string
}

// startFluidbc launches "fluidbc serve" and waits for it to become healthy.
// The server is configured entirely via environment variables.
func startFluidbc(t *testing.T, extraEnv ...string) *fluidbcServer {
	t.Helper()
	requireFluidbc(t)

	s := &fluidbcServer{
		dataDir: t.TempDir(),
		apiKey:  "e2e-test-api-key",
		env:     extraEnv,
	}
	s.start(t, "fluidbc.log")
	return s
}

func (s *fluidbcServer) baseEnv(port int) []string {
	env := append(os.Environ(),
		fmt.Sprintf("FLUIDBC_PORT=%d", port),
		"FLUIDBC_JOURNAL_PATH="+filepath.Join(s.dataDir, "fluidbc.db"),
		"FLUIDBC_API_KEY="+s.apiKey,
		"FLUIDBC_CONFIG_PATH="+filepath.Join(s.dataDir, "nonexistent.yaml"), // skip YAML file
		"FLUIDBC_GRAVITY_MAGNITUDE=1",
	)
	return append(env, s.env...)
}

func (s *fluidbcServer) start(t *testing.T, logName string) {
	t.Helper()

	port := freePort(t)
	s.port = port
	s.address = fmt.Sprintf("127.0.0.1:%d", port)
	s.logFile = filepath.Join(s.dataDir, logName)

	cmd := exec.Command(fluidbcBin, "serve")
	cmd.Env = s.baseEnv(port)

	lf, err := os.Create(s.logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start fluidbc: %v", err)
	}
	s.cmd = cmd

	t.Cleanup(func() {
		s.stop()
		lf.Close()
	})

	if err := s.waitHealthy(10 * time.Second); err != nil {
		t.Fatalf("fluidbc not healthy: %v", err)
	}
}

// stop interrupts the server and returns its exit error.
func (s *fluidbcServer) stop() error {
	if s.cmd == nil || s.cmd.Process == nil || s.cmd.ProcessState != nil {
		return nil
	}
	_ = s.cmd.Process.Signal(os.Interrupt)
	return s.cmd.Wait()
}

// restartOnSameData stops the server and starts it again on a new port with
// the same journal.
func (s *fluidbcServer) restartOnSameData(t *testing.T) {
	t.Helper()
	if err := s.stop(); err != nil {
		t.Fatalf("stop fluidbc: %v", err)
	}
	time.Sleep(200 * time.Millisecond) // allow port release
	s.start(t, "fluidbc-restart.log")
}

func (s *fluidbcServer) baseURL() string {
	return fmt.Sprintf("http://%s", s.address)
}

func (s *fluidbcServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("%s/api/v1/health", s.baseURL())

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("fluidbc not healthy after %s", timeout)
}

// do sends an authenticated request.
func (s *fluidbcServer) do(t *testing.T, method, path string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL()+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// cli runs a fluidbc subcommand against the server's journal and environment.
func (s *fluidbcServer) cli(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(fluidbcBin, args...)
	cmd.Env = append(s.baseEnv(s.port), "FLUIDBC_LOG_LEVEL=error")
	cmd.Stdin = bytes.NewBufferString(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("fluidbc %v: %w\n%s", args, err, stderr.String())
	}
	return stdout.String(), nil
}

// freePort returns a TCP port that is free at the time of the call.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
