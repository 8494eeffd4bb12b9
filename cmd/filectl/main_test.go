package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filekeeper/internal/server/auth"
	"github.com/dmitrijs2005/filekeeper/internal/server/reaper"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, values map[string]any) string {
	t.Helper()
	data, err := json.Marshal(values)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToken_IssuesVerifiableToken(t *testing.T) {
	cfg := writeConfig(t, map[string]any{"secret_key": testSecret})
	user := "11111111-1111-1111-1111-111111111111"

	out, err := execute(t, "token", "-c", cfg, "--user", user, "--ttl", "5m")
	require.NoError(t, err)

	got, err := auth.GetUserIDFromToken(strings.TrimSpace(out), []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestToken_RejectsBadUser(t *testing.T) {
	_, err := execute(t, "token", "--user", "bob")
	require.Error(t, err)

	_, err = execute(t, "token")
	require.Error(t, err)
}

func TestReap_RemovesOnlyStaleFiles(t *testing.T) {
	staging := t.TempDir()
	stale := filepath.Join(staging, "old.part")
	fresh := filepath.Join(staging, "new.part")
	require.NoError(t, os.WriteFile(stale, []byte("12345"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("1"), 0o600))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	cfg := writeConfig(t, map[string]any{"staging_dir": staging})

	out, err := execute(t, "reap", "--config", cfg, "--max-age", "1h")
	require.NoError(t, err)
	assert.Equal(t, "scanned=2 removed=1 freed_bytes=5 errors=0\n", out)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestReap_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "reap", "-c", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)

	require.NoError(t, printReport(cmd, reaper.Report{Checked: 3, Skipped: 1}))
	assert.Equal(t, "checked=3 skipped=1 missing=0\n", out.String())

	out.Reset()
	err := printReport(cmd, reaper.Report{
		Checked: 3,
		Missing: []reaper.Missing{{ObjectID: "a", CanonicalPath: "/data/objects/a.txt"}},
	})
	require.ErrorIs(t, err, errMissingObjects)
	assert.Equal(t, "missing a /data/objects/a.txt\nchecked=3 skipped=0 missing=1\n", out.String())
}

func TestUpload_SignsTokenAndStreamsFile(t *testing.T) {
	user := "11111111-1111-1111-1111-111111111111"
	var gotUser, gotContent string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		id, err := auth.GetUserIDFromToken(tok, []byte(testSecret))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		gotUser = id
		f, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotContent = string(b)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	src := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi there"), 0o600))
	cfg := writeConfig(t, map[string]any{"secret_key": testSecret})

	out, err := execute(t, "upload", src, "-c", cfg, "--server", ts.URL, "--user", user)
	require.NoError(t, err)
	assert.Equal(t, "{\"success\":true}\n", out)
	assert.Equal(t, user, gotUser)
	assert.Equal(t, "hi there", gotContent)
}

func TestUpload_RequiresIdentity(t *testing.T) {
	src := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o600))

	_, err := execute(t, "upload", src)
	require.Error(t, err)
}
