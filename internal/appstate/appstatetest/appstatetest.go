// Package appstatetest builds hydrated containers over an in-memory store
// and the offline backend for screen tests.
package appstatetest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/identity"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/store"
)

// Now is the fixed clock every container built here uses.
var Now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// Env is a container plus the fake backing it.
type Env struct {
	Container *appstate.Container
	Fake      *backend.Fake
	Store     *store.Store
}

// New returns a hydrated container for user-1. A nil fake gets the default
// question bank.
func New(t testing.TB, fake *backend.Fake) *Env {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	w := store.NewWriter(st.KV(), nil)
	t.Cleanup(func() { w.Close() })

	ident, err := identity.Local("secret", "user-1")
	require.NoError(t, err)

	if fake == nil {
		fake = backend.NewFake(backend.FakeOptions{Now: func() time.Time { return Now }})
	}
	sess := session.NewClient(session.Options{
		Backend:    fake,
		Identity:   ident,
		ExamID:     "general",
		EndBackoff: time.Millisecond,
	})
	c := appstate.New(appstate.Options{
		KV:         st.KV(),
		Writer:     w,
		SessionLog: st.SessionLog(),
		Session:    sess,
		Backend:    fake,
		Identity:   ident,
		Now:        func() time.Time { return Now },
	})
	require.NoError(t, c.Hydrate(context.Background()))
	t.Cleanup(func() { sess.Wait(context.Background()) })
	return &Env{Container: c, Fake: fake, Store: st}
}
