package platform

import (
	"context"
	"testing"
	"time"

	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(script string) []string {
	return []string{"sh", "-c", script}
}

func TestScriptProviderDecodesSubmissions(t *testing.T) {
	p := NewScriptProvider("oj.uz", shell(`cat >/dev/null; echo '{"submissions":[{"contestProblemId":7,"time":"2024-03-01T10:00:00Z","score":60,"subtaskScores":[20,40]}]}'`))

	subs, err := p.FetchContestScores(context.Background(), FetchRequest{Handle: "alice"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, uint(7), subs[0].ContestProblemID)
	assert.Equal(t, []float64{20, 40}, subs[0].SubtaskScores)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), subs[0].Time.UTC())
}

func TestScriptProviderReceivesRequest(t *testing.T) {
	// The request arrives as a single JSON line on stdin.
	p := NewScriptProvider("oj.uz", shell(`read line; case "$line" in *'"handle":"42"'*) echo '{"submissions":[{"contestProblemId":1,"score":42}]}';; *) echo '{"error":"bad request"}';; esac`))

	subs, err := p.FetchContestScores(context.Background(), FetchRequest{Handle: "42"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 42.0, subs[0].Score)
}

func TestScriptProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		command []string
	}{
		{"reported error", shell(`echo '{"error":"user not found"}'`)},
		{"garbage output", shell(`echo 'not json'`)},
		{"failed without reply", shell(`exit 3`)},
		{"missing executable", []string{"/nonexistent/scraper"}},
		{"no command", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScriptProvider("oj.uz", tt.command).FetchContestScores(context.Background(), FetchRequest{})
			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestScriptProviderIsKilledOnTimeout(t *testing.T) {
	p := NewScriptProvider("oj.uz", shell(`sleep 10`))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.FetchContestScores(ctx, FetchRequest{})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSessionScriptProviderRefresh(t *testing.T) {
	p := NewSessionScriptProvider("qoj.ac", nil, shell(`cat >/dev/null; echo '{"session":"abc"}'`), "bot", "secret")
	session, err := p.GetValidSession(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "abc", session)

	empty := NewSessionScriptProvider("qoj.ac", nil, shell(`echo '{}'`), "bot", "secret")
	_, err = empty.GetValidSession(context.Background(), "old")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestRegistryFromConfig(t *testing.T) {
	r := NewRegistryFromConfig([]config.Platform{
		{Name: "qoj.ac", Command: []string{"qoj"}, Refresh: []string{"qoj-login"}},
		{Name: "oj.uz", Command: []string{"ojuz"}},
		{Name: "codechef"},
	})
	assert.Equal(t, []string{"oj.uz", "qoj.ac"}, r.Names())

	p, ok := r.Get("qoj.ac")
	require.True(t, ok)
	_, isSession := p.(SessionProvider)
	assert.True(t, isSession)

	p, ok = r.Get("oj.uz")
	require.True(t, ok)
	_, isSession = p.(SessionProvider)
	assert.False(t, isSession)
}
