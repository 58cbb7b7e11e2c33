package verifier

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/manik3160/NeverDown/internal/config"
)

var sensitiveEnvMarkers = []string{"secret", "key", "password", "token"}

// SandboxResult is the outcome of one command run inside the container.
type SandboxResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Sandbox runs commands inside a locked-down, disposable Docker container
// (spec §4.4): no network, capped memory/CPU/pids, dropped capabilities,
// no-new-privileges, non-root, unique naming, force-removed on exit.
type Sandbox struct {
	cfg    config.SandboxSettings
	docker *client.Client
}

// NewSandbox builds a Sandbox against the local Docker daemon.
func NewSandbox(cfg config.SandboxSettings) (*Sandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Sandbox{cfg: cfg, docker: cli}, nil
}

// Run executes command inside a fresh container with repoPath bind-mounted
// read-write at /app, stripping any sensitive-looking environment variable
// before it ever reaches the container (spec §4.4).
func (s *Sandbox) Run(ctx context.Context, repoPath string, command []string, env map[string]string) (SandboxResult, error) {
	name := "neverdown-sandbox-" + uuid.New().String()[:12]

	var envVars []string
	for k, v := range env {
		if isSensitiveEnvKey(k) {
			continue
		}
		envVars = append(envVars, k+"="+v)
	}

	pidsLimit := int64(s.cfg.PidsCap)
	resources := container.Resources{
		Memory:    s.cfg.MemoryCap,
		NanoCPUs:  int64(s.cfg.CPUCap * 1e9),
		PidsLimit: &pidsLimit,
	}

	resp, err := s.docker.ContainerCreate(ctx, &container.Config{
		Image:      s.cfg.Image,
		Cmd:        command,
		Env:        envVars,
		WorkingDir: "/app",
		User:       "1000:1000",
	}, &container.HostConfig{
		AutoRemove:     false,
		NetworkMode:    "none",
		Resources:      resources,
		SecurityOpt:    []string{"no-new-privileges"},
		CapDrop:        []string{"ALL"},
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: repoPath, Target: "/app"},
		},
	}, nil, nil, name)
	if err != nil {
		return SandboxResult{}, fmt.Errorf("create sandbox container: %w", err)
	}
	defer func() {
		_ = s.docker.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}()

	start := time.Now()
	if err := s.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return SandboxResult{}, fmt.Errorf("start sandbox container: %w", err)
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusCh, errCh := s.docker.ContainerWait(waitCtx, resp.ID, container.WaitConditionNotRunning)
	select {
	case <-waitCtx.Done():
		_ = s.docker.ContainerKill(context.Background(), resp.ID, "KILL")
		return SandboxResult{
			ExitCode: -1,
			Stderr:   "Sandbox execution timed out",
			Duration: time.Since(start),
			TimedOut: true,
		}, nil
	case err := <-errCh:
		if err != nil {
			return SandboxResult{}, fmt.Errorf("wait for sandbox container: %w", err)
		}
	case status := <-statusCh:
		stdout, stderr := s.collectLogs(context.Background(), resp.ID)
		return SandboxResult{
			ExitCode: int(status.StatusCode),
			Stdout:   stdout,
			Stderr:   stderr,
			Duration: time.Since(start),
		}, nil
	}

	stdout, stderr := s.collectLogs(context.Background(), resp.ID)
	return SandboxResult{Stdout: stdout, Stderr: stderr, Duration: time.Since(start)}, nil
}

func (s *Sandbox) collectLogs(ctx context.Context, containerID string) (string, string) {
	out, err := s.docker.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", ""
	}
	defer out.Close()

	var stdout, stderr bytes.Buffer
	_, _ = stdcopy.StdCopy(&stdout, &stderr, out)
	return stdout.String(), stderr.String()
}

// Available reports whether the Docker daemon is reachable.
func (s *Sandbox) Available(ctx context.Context) bool {
	_, err := s.docker.Ping(ctx)
	return err == nil
}

func isSensitiveEnvKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveEnvMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

