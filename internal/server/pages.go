package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// pageHead is shared by every page: fonts, palette, header and nav styles.
const pageHead = `<meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <link rel="icon" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='.9em' font-size='90'>◆</text></svg>">
    <link rel="preconnect" href="https://fonts.googleapis.com">
    <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
    <link href="https://fonts.googleapis.com/css2?family=Inter:wght@400;500;600&family=JetBrains+Mono:wght@400;500&display=swap" rel="stylesheet">
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --bg: #09090b; --bg-subtle: #18181b; --border: #27272a;
            --text: #fafafa; --text-secondary: #a1a1aa; --text-tertiary: #52525b;
            --accent: #22c55e; --warn: #f59e0b; --error: #ef4444;
        }
        body {
            font-family: 'Inter', -apple-system, sans-serif;
            background: var(--bg); color: var(--text);
            min-height: 100vh; font-size: 14px;
            -webkit-font-smoothing: antialiased;
        }
        .mono { font-family: 'JetBrains Mono', monospace; }
        .container { max-width: 1200px; margin: 0 auto; padding: 0 24px; }
        header {
            border-bottom: 1px solid var(--border); padding: 16px 0;
            position: sticky; top: 0; background: var(--bg); z-index: 100;
        }
        .header-inner { display: flex; justify-content: space-between; align-items: center; }
        .logo { display: flex; align-items: center; gap: 10px; text-decoration: none; color: var(--text); }
        .logo-mark { width: 24px; height: 24px; background: var(--accent); border-radius: 6px; }
        .logo-text { font-weight: 600; font-size: 15px; }
        nav { display: flex; gap: 32px; }
        nav a { color: var(--text-secondary); text-decoration: none; font-size: 13px; transition: color 0.15s; }
        nav a:hover, nav a.active { color: var(--text); }
        .page-header { padding: 48px 0 32px; border-bottom: 1px solid var(--border); }
        .page-title { font-size: 24px; font-weight: 600; margin-bottom: 4px; }
        .page-desc { color: var(--text-secondary); }
        .section { padding: 32px 0; border-bottom: 1px solid var(--border); }
        .section-title { font-size: 13px; font-weight: 500; color: var(--text-secondary); text-transform: uppercase; letter-spacing: 0.05em; margin-bottom: 16px; }
        .bar-track { background: var(--bg-subtle); border-radius: 4px; height: 8px; overflow: hidden; }
        .bar-fill { height: 100%; border-radius: 4px; transition: width 0.3s; }
        .empty { text-align: center; padding: 64px 24px; color: var(--text-tertiary); }
        .notice { border: 1px solid var(--border); border-radius: 12px; padding: 20px; margin: 24px 0; color: var(--text-secondary); }
        .notice.warn { border-color: var(--warn); }
        .notice.error { border-color: var(--error); }
        footer { border-top: 1px solid var(--border); padding: 24px 0; margin-top: 48px; text-align: center; color: var(--text-tertiary); font-size: 13px; }
    </style>`

const overviewPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <title>Trust Network · Trustboard</title>
    ` + pageHead + `
    <style>
        .cards { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 16px; padding: 32px 0; }
        .card { background: var(--bg-subtle); border: 1px solid var(--border); border-radius: 12px; padding: 20px; }
        .card-value { font-size: 24px; font-weight: 600; }
        .card-label { font-size: 12px; color: var(--text-tertiary); margin-top: 4px; }
        .tier-bar { display: flex; height: 24px; border-radius: 6px; overflow: hidden; background: var(--bg-subtle); }
        .tier-seg { height: 100%; }
        .legend { display: flex; gap: 24px; flex-wrap: wrap; margin-top: 12px; font-size: 13px; color: var(--text-secondary); }
        .dist-row { display: grid; grid-template-columns: 160px 1fr 80px; gap: 12px; align-items: center; margin-bottom: 10px; }
        .dist-count { text-align: right; color: var(--text-secondary); }
        .rules { display: grid; grid-template-columns: repeat(auto-fill, minmax(200px, 1fr)); gap: 12px; }
        .rule { background: var(--bg-subtle); border: 1px solid var(--border); border-radius: 8px; padding: 12px; font-size: 13px; }
    </style>
</head>
<body>
    <header><div class="container header-inner">
        <a href="/" class="logo"><div class="logo-mark"></div><span class="logo-text">Trustboard</span></a>
        <nav>
            <a href="/" class="active">Overview</a>
            <a href="/leaderboard">Leaderboard</a>
            <a href="/api/v1/views/overview">API</a>
        </nav>
    </div></header>
    <main class="container">
        <div class="page-header">
            <h1 class="page-title">Agent Trust Network</h1>
            <p class="page-desc">Trust scores for AI agents, aggregated by the oracle</p>
        </div>
        <div id="notice"></div>
        <div class="cards" id="cards"><div class="empty">Loading...</div></div>
        <div class="section"><div class="section-title">Trust Tiers</div><div id="tiers"></div></div>
        <div class="section"><div class="section-title">Chains</div><div id="chains"></div></div>
        <div class="section"><div class="section-title">Categories</div><div id="categories"></div></div>
        <div class="section"><div class="section-title">Protocols</div><div id="protocols"></div></div>
        <div class="section"><div class="section-title">How Tiers Work</div><div class="rules" id="rules"></div></div>
    </main>
    <footer><div class="container">Read-only view of the trust oracle</div></footer>
    <script>
        const esc = s => String(s ?? '').replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
        const bars = (id, items) => {
            const el = document.getElementById(id);
            if (!items.length) { el.innerHTML = '<div class="empty">No data</div>'; return; }
            el.innerHTML = items.map(b =>
                '<div class="dist-row"><div>'+esc(b.label)+'</div>'+
                '<div class="bar-track"><div class="bar-fill" style="width:'+b.width+'%;background:'+esc(b.color)+'"></div></div>'+
                '<div class="dist-count mono">'+b.count+' · '+b.pct.toFixed(1)+'%</div></div>').join('');
        };

        fetch('/api/v1/views/overview').then(r => r.json()).then(m => {
            if (m.outcome === 'no_data') {
                document.getElementById('notice').innerHTML = '<div class="notice error">Trust oracle unavailable. Showing placeholders.</div>';
            }
            document.getElementById('cards').innerHTML = m.cards.map(c =>
                '<div class="card"><div class="card-value mono"'+(c.color ? ' style="color:'+esc(c.color)+'"' : '')+'>'+esc(c.value)+'</div>'+
                '<div class="card-label">'+esc(c.label)+'</div></div>').join('');

            const tiers = document.getElementById('tiers');
            tiers.innerHTML = '<div class="tier-bar">'+m.tiers.map(s =>
                '<div class="tier-seg" title="'+esc(s.label)+'" style="width:'+s.width+'%;background:'+esc(s.style.color)+'"></div>').join('')+'</div>'+
                '<div class="legend">'+m.tiers.map(s => '<span><span style="color:'+esc(s.style.color)+'">●</span> '+esc(s.label)+' <span class="mono">'+s.count+'</span></span>').join('')+'</div>';

            bars('chains', m.chains);
            bars('categories', m.categories);
            bars('protocols', m.protocols);

            document.getElementById('rules').innerHTML = m.tier_rules.map(r =>
                '<div class="rule"><strong>'+esc(r.tier)+'</strong><div class="mono">score ≥ '+r.min_score+' · feedback ≥ '+r.min_feedback+'</div></div>').join('');
        }).catch(e => {
            document.getElementById('notice').innerHTML = '<div class="notice error">'+esc(e.message)+'</div>';
        });
    </script>
</body>
</html>`

const leaderboardPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <title>Leaderboard · Trustboard</title>
    ` + pageHead + `
    <style>
        .badges { display: flex; gap: 8px; flex-wrap: wrap; margin-bottom: 12px; }
        .badge { background: var(--bg); border: 1px solid var(--border); padding: 4px 10px; border-radius: 999px; font-size: 12px; color: var(--text-secondary); cursor: pointer; }
        .badge.active { border-color: var(--accent); color: var(--text); }
        table { width: 100%; border-collapse: collapse; margin-top: 16px; }
        th { text-align: left; font-size: 12px; font-weight: 500; color: var(--text-tertiary); padding: 8px; border-bottom: 1px solid var(--border); }
        td { padding: 10px 8px; border-bottom: 1px solid var(--border); }
        .score-cell { display: grid; grid-template-columns: 48px 1fr; gap: 8px; align-items: center; }
        .chain-pill { padding: 2px 8px; border-radius: 4px; font-size: 12px; }
        .status { font-size: 12px; color: var(--text-tertiary); }
    </style>
</head>
<body>
    <header><div class="container header-inner">
        <a href="/" class="logo"><div class="logo-mark"></div><span class="logo-text">Trustboard</span></a>
        <nav>
            <a href="/">Overview</a>
            <a href="/leaderboard" class="active">Leaderboard</a>
            <a href="/api/v1/views/leaderboard">API</a>
        </nav>
    </div></header>
    <main class="container">
        <div class="page-header">
            <h1 class="page-title">Leaderboard</h1>
            <p class="page-desc">Top agents by composite trust score · <span id="total" class="mono">—</span> agents scored</p>
        </div>
        <div class="section">
            <div class="badges" id="categories"></div>
            <div class="badges" id="chains"></div>
            <div class="status" id="status">Connecting...</div>
            <div id="body"></div>
        </div>
    </main>
    <footer><div class="container">Read-only view of the trust oracle</div></footer>
    <script>
        const esc = s => String(s ?? '').replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
        const params = new URLSearchParams(location.search);
        let ws;

        const badges = (id, dim, list) => {
            document.getElementById(id).innerHTML = list.map(b =>
                '<span class="badge'+(b.active ? ' active' : '')+'" data-dim="'+dim+'" data-slug="'+esc(b.slug)+'">'+
                esc(b.label)+(b.count != null ? ' <span class="mono">'+b.count+'</span>' : '')+'</span>').join('');
        };

        const render = m => {
            document.getElementById('total').textContent = m.total_agents;
            badges('categories', 'category', m.category_badges);
            badges('chains', 'chain', m.chain_badges);
            document.getElementById('status').textContent = m.loading ? 'Loading...' : '';

            const body = document.getElementById('body');
            if (m.loading) { body.innerHTML = '<div class="empty">Loading...</div>'; return; }
            if (m.phase === 'payment_required') {
                const a = m.advisory;
                body.innerHTML = '<div class="notice warn">'+esc(m.message)+
                    (a && a.priceUsd ? '<div class="mono" style="margin-top:8px">$'+esc(a.priceUsd)+' on '+esc(a.networkName || a.network)+'</div>' : '')+'</div>';
                return;
            }
            if (m.phase === 'failed') { body.innerHTML = '<div class="notice error">'+esc(m.message)+'</div>'; return; }
            if (m.empty) { body.innerHTML = '<div class="empty">No agents match these filters</div>'; return; }

            body.innerHTML = '<table><thead><tr><th>#</th><th>Agent</th><th>Chain</th><th>Category</th><th>Tier</th><th>Score</th><th>Feedback</th></tr></thead><tbody>'+
                m.rows.map(r =>
                    '<tr><td class="mono">'+r.rank+'</td><td>'+esc(r.name)+'</td>'+
                    '<td><span class="chain-pill" style="background:'+esc(r.chain_style.color)+'22;color:'+esc(r.chain_style.color)+'">'+esc(r.chain_style.label)+'</span></td>'+
                    '<td>'+esc(r.category)+'</td>'+
                    '<td style="color:'+esc(r.tier_style.color)+'">'+esc(r.tier_style.label)+'</td>'+
                    '<td><div class="score-cell"><span class="mono" style="color:'+esc(r.score_color)+'">'+esc(r.score_text)+'</span>'+
                    '<div class="bar-track"><div class="bar-fill" style="width:'+r.bar_width+'%;background:'+esc(r.bar_color)+'"></div></div></div></td>'+
                    '<td class="mono">'+esc(r.feedback)+'</td></tr>').join('')+'</tbody></table>';
        };

        document.addEventListener('click', e => {
            const b = e.target.closest('.badge');
            if (!b || !ws || ws.readyState !== WebSocket.OPEN) return;
            ws.send(JSON.stringify({type: 'select', dimension: b.dataset.dim, value: b.dataset.slug}));
            const q = new URLSearchParams(location.search);
            if (b.dataset.slug) q.set(b.dataset.dim, b.dataset.slug); else q.delete(b.dataset.dim);
            history.replaceState(null, '', '?'+q.toString());
        });

        const connect = () => {
            const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(proto+'//'+location.host+'/ws/leaderboard?'+params.toString());
            ws.onmessage = e => { const ev = JSON.parse(e.data); if (ev.type === 'leaderboard') render(ev.data); };
            ws.onclose = () => {
                document.getElementById('status').textContent = 'Disconnected, falling back to polling';
                fetch('/api/v1/views/leaderboard?'+new URLSearchParams(location.search).toString()).then(r => r.json()).then(render);
            };
        };
        connect();
    </script>
</body>
</html>`

func overviewPageHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, overviewPageHTML)
}

func leaderboardPageHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, leaderboardPageHTML)
}
