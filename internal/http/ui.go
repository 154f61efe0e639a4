package http

import nethttp "net/http"

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

// pageHTML is the viewer page skeleton. The server keeps a parsed copy of
// it as the render target; the script only mirrors feed events into it.
const pageHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Process Table</title>
  <style>
    :root {
      --blue: #0e5d8f;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --line: #ddd;
      --head: #f0f0f0;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --info-bg: #d9edf7;
      --info-text: #31708f;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
    }
    body { margin: 0; background: var(--bg); color: var(--text); font: 14px/1.45 "Open Sans", Arial, sans-serif; }
    header { background: var(--blue); color: #fff; padding: 12px 24px; }
    header h1 { margin: 0; font-size: 20px; font-weight: 600; }
    main { max-width: 960px; margin: 24px auto; padding: 0 16px; }
    .actions { display: flex; gap: 8px; margin-bottom: 16px; }
    .actions form { margin: 0; }
    button { background: var(--blue); color: #fff; border: 0; border-radius: 3px; padding: 8px 16px; cursor: pointer; }
    button.secondary { background: #777; }
    button:disabled { opacity: .6; cursor: wait; }
    .alert { border-radius: 3px; padding: 10px 14px; margin-bottom: 16px; }
    .alert-info { background: var(--info-bg); color: var(--info-text); }
    .alert-success { background: var(--ok-bg); color: var(--ok-text); }
    .alert-danger { background: var(--bad-bg); color: var(--bad-text); }
    .card { background: var(--paper); border: 1px solid var(--line); border-radius: 3px; }
    .card-header { background: var(--head); border-bottom: 1px solid var(--line); padding: 10px 14px; }
    .card-header h3 { margin: 0; font-size: 16px; }
    table { width: 100%; border-collapse: collapse; }
    th, td { padding: 8px 10px; border-bottom: 1px solid var(--line); }
    tbody tr:nth-child(odd) td { background: #f9f9f9; }
    .text-center { text-align: center; }
    .text-danger { color: var(--bad-text); }
    #inputParams { white-space: pre-wrap; color: #777; margin-top: 16px; }
  </style>
</head>
<body>
  <header><h1>Process Table</h1></header>
  <main>
    <div class="actions">
      <form method="post" action="/ui/generate"><button id="generateButton" type="submit">Generate New Processes</button></form>
      <form method="post" action="/ui/show"><button id="showButton" class="secondary" type="submit">Show Current Processes</button></form>
    </div>
    <div id="generateStatus"></div>
    <div id="generatedProcesses" class="card" style="display: none">
      <div class="card-header"><h3 class="mb-0">Generated Processes</h3></div>
      <table>
        <thead><tr><th class="text-center">Process ID</th><th class="text-center">Arrival Time</th><th class="text-center">Burst Time</th><th class="text-center">Priority</th></tr></thead>
        <tbody id="processesTableBody"></tbody>
      </table>
    </div>
    <div id="inputParams"></div>
  </main>
  <script>
    const q = (sel) => document.querySelector(sel);
    const fmt = (v) => Number(v).toFixed(2);
    const COLUMNS = 4;
    const LOADED = 'Processes data loaded successfully!';

    function cell(text, cls) {
      const td = document.createElement('td');
      td.className = cls || 'text-center';
      td.textContent = text;
      return td;
    }

    function applyState(s) {
      const status = q('#generateStatus');
      const container = q('#generatedProcesses');
      const body = q('#processesTableBody');
      status.replaceChildren();
      if (s.message) {
        const level = s.phase === 'error' ? 'danger' : (s.phase === 'loading' ? 'info' : 'success');
        const div = document.createElement('div');
        div.className = 'alert alert-' + level;
        div.textContent = s.phase === 'error' ? 'Error: ' + s.message : s.message;
        status.appendChild(div);
      }
      q('#generateButton').disabled = s.phase === 'loading';
      if (s.phase === 'loading') {
        body.replaceChildren();
        return;
      }
      container.style.display = 'block';
      if (s.phase === 'error') {
        const tr = document.createElement('tr');
        const td = cell(s.message, 'text-center text-danger');
        td.colSpan = COLUMNS;
        tr.appendChild(td);
        body.replaceChildren(tr);
        return;
      }
      if (s.phase === 'success') {
        const rows = s.rows || [];
        body.replaceChildren(...rows.map((r) => {
          const tr = document.createElement('tr');
          tr.append(cell(r.process_id), cell(fmt(r.arrival_time)), cell(fmt(r.burst_time)), cell(r.priority));
          return tr;
        }));
        const caption = q('#generatedProcesses .card-header h3');
        if (caption && s.message === LOADED) caption.textContent = 'Generated Processes (' + rows.length + ' processes)';
      }
    }

    function loadInputParams() {
      fetch('/api/v1/input').then((r) => r.ok ? r.json() : null).then((p) => {
        q('#inputParams').textContent = p && p.data ? p.data : '';
      }).catch(() => {});
    }

    function connect() {
      const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
      const ws = new WebSocket(proto + location.host + '/ws');
      ws.onmessage = (ev) => {
        const msg = JSON.parse(ev.data);
        if (msg.type === 'reload') {
          location.reload();
          return;
        }
        if (msg.state) applyState(msg.state);
        if (msg.state && msg.state.phase === 'success') loadInputParams();
      };
      ws.onclose = () => setTimeout(connect, 3000);
    }

    connect();
    loadInputParams();
  </script>
</body>
</html>`
