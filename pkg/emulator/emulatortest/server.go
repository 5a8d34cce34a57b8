// Package emulatortest starts in-process Firefly III emulators for tests.
package emulatortest

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/pigeonworks-llc/firefly-sync/pkg/emulator/api"
	"github.com/pigeonworks-llc/firefly-sync/pkg/emulator/store"
)

// Token is the access token accepted by servers started with NewServer.
const Token = "test-token"

// Server is a running emulator.
type Server struct {
	*httptest.Server
	Store *store.Store
}

// NewServer starts an emulator backed by a temporary database. perPage sets
// the page size of list endpoints; 0 keeps the default. The server is closed
// when the test ends.
func NewServer(t testing.TB, perPage int) *Server {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "emulator.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := st.AddToken(Token); err != nil {
		t.Fatalf("failed to add token: %v", err)
	}

	srv := httptest.NewServer(api.NewRouter(st, api.RouterOptions{PerPage: perPage, Quiet: true}))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})

	return &Server{Server: srv, Store: st}
}
