package auth

import (
	"io"
	"log"
	"net/http"

	"tiktok-signin-go/internal/backend"
	"tiktok-signin-go/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// testLocator resolves to base with no alternates beyond the api. toggle.
func testLocator(base string) *backend.Locator {
	durable := storage.NewInMemoryKV()
	return backend.NewLocator(durable, base, base, nil, false, http.DefaultClient, testLogger())
}

// countingDoer counts transport calls before delegating.
type countingDoer struct {
	calls int
	next  backend.Doer
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls++
	return d.next.Do(req)
}
