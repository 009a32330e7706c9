package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ZJUSCT/OITrack/internal/config"
	"go.uber.org/zap"
)

// ScriptProvider runs a scraper executable. The request is written to its
// stdin as JSON and a JSON reply is read from stdout.
type ScriptProvider struct {
	name    string
	command []string
}

type fetchReply struct {
	Submissions []Submission `json:"submissions"`
	Error       string       `json:"error"`
}

type refreshRequest struct {
	OldSession string `json:"oldSession"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

type refreshReply struct {
	Session string `json:"session"`
	Error   string `json:"error"`
}

func NewScriptProvider(name string, command []string) *ScriptProvider {
	return &ScriptProvider{name: name, command: command}
}

func (p *ScriptProvider) Name() string {
	return p.name
}

func (p *ScriptProvider) FetchContestScores(ctx context.Context, req FetchRequest) ([]Submission, error) {
	var reply fetchReply
	if err := runScript(ctx, p.command, req, &reply); err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("%s: %w: %s", p.name, ErrUpstream, reply.Error)
	}
	return reply.Submissions, nil
}

// SessionScriptProvider is a ScriptProvider whose scraper logs in through
// a shared account. Refresh exchanges a stored session for a valid one.
type SessionScriptProvider struct {
	*ScriptProvider
	refresh  []string
	username string
	password string
}

func NewSessionScriptProvider(name string, command, refresh []string, username, password string) *SessionScriptProvider {
	return &SessionScriptProvider{
		ScriptProvider: NewScriptProvider(name, command),
		refresh:        refresh,
		username:       username,
		password:       password,
	}
}

func (p *SessionScriptProvider) GetValidSession(ctx context.Context, oldSession string) (string, error) {
	var reply refreshReply
	req := refreshRequest{OldSession: oldSession, Username: p.username, Password: p.password}
	if err := runScript(ctx, p.refresh, req, &reply); err != nil {
		return "", fmt.Errorf("%s refresh: %w", p.name, err)
	}
	if reply.Error != "" || reply.Session == "" {
		return "", fmt.Errorf("%s refresh: %w: %s", p.name, ErrUpstream, reply.Error)
	}
	return reply.Session, nil
}

const waitDelay = 2 * time.Second

// runScript executes command with in encoded on stdin and decodes stdout
// into out. Scrapers report their own failures inside the JSON reply, so a
// non-zero exit status is only an error if stdout is not a reply.
func runScript(ctx context.Context, command []string, in interface{}, out interface{}) error {
	if len(command) == 0 {
		return fmt.Errorf("%w: no command configured", ErrUpstream)
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	// Children of a killed scraper may hold stdout open.
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, ctxErr)
	}
	if stderr.Len() > 0 {
		zap.S().Debugf("scraper %s stderr: %s", command[0], strings.TrimSpace(stderr.String()))
	}
	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		if runErr != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, runErr)
		}
		return fmt.Errorf("%w: malformed scraper output: %v", ErrUpstream, err)
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return fmt.Errorf("%w: %v", ErrUpstream, runErr)
	}
	return nil
}

// NewRegistryFromConfig builds script providers for every configured platform.
func NewRegistryFromConfig(platforms []config.Platform) *Registry {
	r := NewRegistry()
	for _, p := range platforms {
		if len(p.Command) == 0 {
			zap.S().Warnf("platform %s has no command configured, skipping", p.Name)
			continue
		}
		if len(p.Refresh) > 0 {
			r.Register(NewSessionScriptProvider(p.Name, p.Command, p.Refresh, p.Username, p.Password))
		} else {
			r.Register(NewScriptProvider(p.Name, p.Command))
		}
		zap.S().Infof("registered scoring provider for %s", p.Name)
	}
	return r
}
