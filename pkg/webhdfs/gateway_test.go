package webhdfs

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testUser     = "alice"
	testPassword = "secret"
	testSession  = "session-1"
)

// fakeGateway is an in-memory HttpFS gateway with form login. Files live in
// a flat map keyed by absolute path; directories are tracked separately.
type fakeGateway struct {
	srv *httptest.Server

	logins   atomic.Int32
	requests atomic.Int32

	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// lastRequest records the most recent API request for assertions.
	lastRequest *http.Request

	// denyWrites makes mutating operations fail with AccessControlException.
	denyWrites bool

	// dropConnections makes every API request end with a closed connection.
	dropConnections atomic.Bool

	// hangFirstLogin makes the first login never answer until the client
	// gives up on it.
	hangFirstLogin atomic.Bool
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	g := &fakeGateway{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true, "/tmp": true},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+loginPath, g.handleLogin)
	mux.HandleFunc(apiPrefix, g.handleAPI)

	g.srv = httptest.NewTLSServer(mux)
	t.Cleanup(g.srv.Close)

	return g
}

func (g *fakeGateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if g.logins.Add(1) == 1 && g.hangFirstLogin.Load() {
		<-r.Context().Done()
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The real gateway always answers 200; only the cookies differ.
	http.SetCookie(w, &http.Cookie{Name: "WASReqURL", Value: "x", Path: "/"})

	if r.PostForm.Get("j_username") == testUser && r.PostForm.Get("j_password") == testPassword {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: testSession, Path: "/"})
	}

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "<html>login</html>")
}

func (g *fakeGateway) handleAPI(w http.ResponseWriter, r *http.Request) {
	g.requests.Add(1)

	if g.dropConnections.Load() {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "hijack unsupported", http.StatusInternalServerError)
			return
		}

		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}

		return
	}

	g.mu.Lock()
	g.lastRequest = r.Clone(r.Context())
	g.mu.Unlock()

	if ck, err := r.Cookie("JSESSIONID"); err != nil || ck.Value != testSession {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "<html>401 Unauthorized</html>")

		return
	}

	p := "/" + strings.Trim(strings.TrimPrefix(r.URL.Path, apiPrefix), "/")
	op := r.URL.Query().Get("op")

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.denyWrites && r.Method != http.MethodGet {
		writeRemoteException(w, http.StatusForbidden, "AccessControlException",
			"org.apache.hadoop.security.AccessControlException",
			fmt.Sprintf("Permission denied: user=%s, access=WRITE, inode=\"%s\":hdfs:supergroup:drwxr-xr-x", testUser, p))

		return
	}

	switch op {
	case opListStatus:
		g.listStatus(w, p)
	case opMkdirs:
		g.dirs[p] = true
		writeBoolean(w, true)
	case opCreate:
		data, _ := io.ReadAll(r.Body)
		g.files[p] = data
		w.WriteHeader(http.StatusCreated)
	case opOpen:
		data, ok := g.files[p]
		if !ok {
			writeRemoteException(w, http.StatusNotFound, "FileNotFoundException",
				"java.io.FileNotFoundException", "File does not exist: "+p)

			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	case opDelete:
		_, existed := g.files[p]
		delete(g.files, p)
		writeBoolean(w, existed)
	case opRename:
		data, ok := g.files[p]
		if ok {
			delete(g.files, p)
			g.files[r.URL.Query().Get("destination")] = data
		}

		writeBoolean(w, ok)
	default:
		writeRemoteException(w, http.StatusBadRequest, "IllegalArgumentException",
			"java.lang.IllegalArgumentException", "Invalid value for webhdfs parameter \"op\": "+op)
	}
}

// last returns the most recent API request the gateway received.
func (g *fakeGateway) last() *http.Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastRequest
}

// setDenyWrites toggles AccessControlException responses for writes.
func (g *fakeGateway) setDenyWrites(deny bool) {
	g.mu.Lock()
	g.denyWrites = deny
	g.mu.Unlock()
}

func (g *fakeGateway) listStatus(w http.ResponseWriter, dir string) {
	if !g.dirs[dir] {
		writeRemoteException(w, http.StatusNotFound, "FileNotFoundException",
			"java.io.FileNotFoundException", "File "+dir+" does not exist.")

		return
	}

	entries := []map[string]any{}

	names := make([]string, 0, len(g.files))
	for name := range g.files {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if path.Dir(name) != dir {
			continue
		}

		entries = append(entries, map[string]any{
			"pathSuffix":       path.Base(name),
			"type":             TypeFile,
			"length":           len(g.files[name]),
			"owner":            testUser,
			"group":            "supergroup",
			"permission":       "644",
			"replication":      3,
			"blockSize":        134217728,
			"modificationTime": 1700000000000,
			"accessTime":       1700000000000,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"FileStatuses": map[string]any{"FileStatus": entries},
	})
}

func writeBoolean(w http.ResponseWriter, b bool) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"boolean":%t}`, b)
}

func writeRemoteException(w http.ResponseWriter, status int, exception, className, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"RemoteException": map[string]string{
			"exception":     exception,
			"javaClassName": className,
			"message":       message,
		},
	})
}

// testConfig returns a valid Config for the fake gateway's credentials.
func testConfig() Config {
	return Config{
		User:     testUser,
		Password: testPassword,
		URL:      "https://gateway.example.com:14443/webhdfs/v1/",
	}
}

// newTestClient creates a Client whose login and API endpoints point at srv.
func newTestClient(t *testing.T, srv *httptest.Server, cfg Config) *Client {
	t.Helper()

	c, err := NewClient(cfg, srv.Client(), slog.Default())
	require.NoError(t, err)

	c.loginURL = srv.URL + loginPath
	c.apiURL = srv.URL + apiPrefix

	return c
}

// newStubGateway serves a login that always establishes a session and
// answers every API request with api.
func newStubGateway(t *testing.T, api http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+loginPath, func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "WASReqURL", Value: "x", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: testSession, Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(apiPrefix, api)

	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

// fakeClock is a settable clock for session expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
