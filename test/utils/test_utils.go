// test/utils/test_utils.go
package utils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// TestServer wraps httptest.Server with page-load accounting. Only
// requests for the page itself are counted; favicon and asset fetches
// from the browser are ignored.
type TestServer struct {
	*httptest.Server
	pageLoads int64
}

// NewTestServer creates a test server that serves the given HTML on every
// path.
func NewTestServer(html string) *TestServer {
	ts := &TestServer{}

	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			atomic.AddInt64(&ts.pageLoads, 1)
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, html)
	}))

	return ts
}

// NewTestServerWithHandler creates a test server with a custom handler.
func NewTestServerWithHandler(handler http.HandlerFunc) *TestServer {
	ts := &TestServer{}
	ts.Server = httptest.NewServer(handler)
	return ts
}

// PageLoads returns how many times the page itself was requested.
func (ts *TestServer) PageLoads() int {
	return int(atomic.LoadInt64(&ts.pageLoads))
}

// PageTemplates provides the HTML fixtures the integration tests serve.
type PageTemplates struct{}

// RoomPage returns the miniature room-creation app. Clicking the
// Create Room button reveals the share banner with the given room ID
// after revealDelayMS milliseconds.
func (PageTemplates) RoomPage(roomID string, revealDelayMS int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Rooms</title></head>
<body>
	<main>
		<h1>Video Rooms</h1>
		<p class="tagline">Start a room and share the ID with your team.</p>
		<button id="create">Create Room</button>
		<section id="share" class="share-banner" hidden></section>
	</main>
	<script>
		document.getElementById('create').addEventListener('click', function () {
			setTimeout(function () {
				var banner = document.getElementById('share');
				banner.textContent = 'Share your ID: %s';
				banner.hidden = false;
			}, %d);
		});
	</script>
</body>
</html>`, roomID, revealDelayMS)
}

// StaticPage returns a minimal page with the given title and body markup.
func (PageTemplates) StaticPage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
%s
</body>
</html>`, title, body)
}
