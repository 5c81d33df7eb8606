package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// debugPageHandler serves a simple debug page to test oracle connectivity
func debugPageHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, debugPageHTML)
}

const debugPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Trustboard Debug</title>
    <style>
        body { font-family: monospace; background: #111; color: #0f0; padding: 20px; }
        pre { background: #222; padding: 10px; overflow: auto; max-height: 400px; }
        .error { color: #f00; }
        .success { color: #0f0; }
        h2 { color: #0ff; margin-top: 20px; }
    </style>
</head>
<body>
    <h1>Trustboard Debug Page</h1>
    <p>Testing oracle connectivity through the dashboard...</p>

    <h2>1. Readiness (/health/ready)</h2>
    <pre id="ready">Loading...</pre>

    <h2>2. Overview model (/api/v1/views/overview)</h2>
    <pre id="overview">Loading...</pre>

    <h2>3. Leaderboard model (/api/v1/views/leaderboard)</h2>
    <pre id="leaderboard">Loading...</pre>

    <h2>4. Recent oracle calls (/debug/fetches?limit=20)</h2>
    <pre id="fetches">Loading...</pre>

    <script>
        async function test(endpoint, elementId) {
            const el = document.getElementById(elementId);
            try {
                const res = await fetch(endpoint);
                const data = await res.json();
                el.className = res.ok ? 'success' : 'error';
                el.textContent = JSON.stringify(data, null, 2);
            } catch (e) {
                el.className = 'error';
                el.textContent = 'ERROR: ' + e.message;
            }
        }

        (async () => {
            await test('/health/ready', 'ready');
            await test('/api/v1/views/overview', 'overview');
            await test('/api/v1/views/leaderboard', 'leaderboard');
            await test('/debug/fetches?limit=20', 'fetches');
        })();
    </script>
</body>
</html>`
