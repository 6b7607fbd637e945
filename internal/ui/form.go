package ui

const formHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Web Cart Agent</title>
<style>
body { font-family: -apple-system, Segoe UI, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; color: #222; }
h1 { font-size: 1.4rem; }
label { display: block; margin-top: 0.9rem; font-weight: 600; }
input[type=text], input[type=password], textarea { width: 100%; padding: 0.45rem; margin-top: 0.25rem; border: 1px solid #bbb; border-radius: 4px; box-sizing: border-box; }
textarea { height: 7rem; font-family: monospace; }
small { color: #666; }
button { margin-top: 1.2rem; padding: 0.5rem 1.4rem; border: 0; border-radius: 4px; background: #2563eb; color: #fff; font-size: 1rem; cursor: pointer; }
button:disabled { background: #93b4f5; }
#log { margin-top: 1.5rem; background: #111; color: #d1fae5; font-family: monospace; font-size: 0.84rem; padding: 0.8rem; border-radius: 4px; white-space: pre-wrap; min-height: 6rem; max-height: 24rem; overflow-y: auto; display: none; }
.row { display: flex; gap: 1rem; }
.row > div { flex: 1; }
</style>
</head>
<body>
<h1>Web Cart Agent</h1>
<p>Enter a shopping website and the items to add to its cart. One item per line:
<code>name | description | quantity | key:value,key:value</code> (only the name is
required). Paste a product URL as the first field to add that exact product
instead of searching by name.</p>

<form id="cart-form">
  <label>Website
    <input type="text" name="website" placeholder="amazon.com" required>
  </label>
  <label>Items
    <textarea name="items_text" placeholder="wireless mouse | ergonomic, USB receiver | 1 | color:black
https://www.example.com/product/123 | | 2"></textarea>
  </label>
  <div class="row">
    <div>
      <label>Username <small>(optional)</small>
        <input type="text" name="username" autocomplete="off">
      </label>
    </div>
    <div>
      <label>Password <small>(optional)</small>
        <input type="password" name="password" autocomplete="off">
      </label>
    </div>
  </div>
  <label><input type="checkbox" name="headless"> Run headless</label>
  <button type="submit" id="start">Add to Cart</button>
</form>

<div id="log"></div>

<script>
const form = document.getElementById('cart-form');
const log = document.getElementById('log');
const start = document.getElementById('start');

form.addEventListener('submit', async (e) => {
  e.preventDefault();
  const fd = new FormData(form);
  const body = {
    website: fd.get('website'),
    items_text: fd.get('items_text'),
    credentials: { username: fd.get('username'), password: fd.get('password') },
    headless: fd.get('headless') === 'on',
  };
  start.disabled = true;
  log.style.display = 'block';
  log.textContent = '';

  const resp = await fetch('/api/cart', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(body),
  });
  const data = await resp.json();
  if (!resp.ok) {
    log.textContent = 'Error: ' + (data.error || resp.statusText);
    start.disabled = false;
    return;
  }

  const es = new EventSource('/api/runs/' + data.run_id + '/events');
  es.addEventListener('log', (ev) => {
    log.textContent += ev.data + '\n';
    log.scrollTop = log.scrollHeight;
  });
  es.addEventListener('done', () => {
    es.close();
    start.disabled = false;
  });
  es.onerror = () => {
    es.close();
    start.disabled = false;
  };
});
</script>
</body>
</html>
`
