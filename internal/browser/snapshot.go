package browser

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

type PageSnapshot struct {
	URL              string
	Title            string
	Tree             string
	ScreenshotBase64 string
}

// annotateScript renders visible interactive elements as an indented tree.
// Each interactive element gets a fresh data-ai-id attribute; the numeric ids
// in the rendered tree are the only valid action targets. If a modal dialog
// is active, traversal starts from it so the model cannot click through the
// backdrop.
const annotateScript = `(() => {
	let idCounter = 1;
	const interactiveTags = new Set(['a', 'button', 'input', 'textarea', 'select', 'details', 'summary']);

	document.querySelectorAll('[data-ai-id]').forEach(el => el.removeAttribute('data-ai-id'));

	function cleanText(text) {
		if (!text) return '';
		let res = text.replace(/\s+/g, ' ').trim();
		if (res.length > 100) return res.slice(0, 100) + '...';
		return res;
	}

	function isVisible(el) {
		if (!el || !el.getBoundingClientRect) return false;
		if (el.getAttribute('aria-hidden') === 'true') return false;

		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);

		// Off-viewport elements are omitted until the agent scrolls.
		const inViewport = rect.top < window.innerHeight && rect.bottom > 0 &&
			rect.left < window.innerWidth && rect.right > 0;

		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none' &&
			style.opacity !== '0' && inViewport;
	}

	function isInteractive(el) {
		const tag = el.tagName.toLowerCase();
		const role = (el.getAttribute('role') || '').toLowerCase();
		const tabIndex = el.getAttribute('tabindex');

		return interactiveTags.has(tag) ||
			['button', 'link', 'checkbox', 'menuitem', 'tab', 'textbox', 'combobox', 'option'].includes(role) ||
			(tabIndex !== null && tabIndex !== '-1') ||
			el.onclick != null;
	}

	function escapeAttr(value) {
		return value.replace(/"/g, '\\"');
	}

	function inDialog(el) {
		let cur = el;
		while (cur && cur !== document.body) {
			const role = (cur.getAttribute('role') || '').toLowerCase();
			if (role === 'dialog' || role === 'alertdialog' || cur.getAttribute('aria-modal') === 'true') {
				return true;
			}
			cur = cur.parentElement;
		}
		return false;
	}

	function getKind(el) {
		const tag = el.tagName.toLowerCase();
		const role = (el.getAttribute('role') || '').toLowerCase();
		const type = (el.getAttribute('type') || '').toLowerCase();

		if (tag === 'button' || role === 'button') return 'button';
		if (tag === 'a' || role === 'link') return 'link';
		if (tag === 'input') {
			if (type === 'checkbox') return 'checkbox';
			if (type === 'radio') return 'radio';
			if (type === 'search') return 'search';
			return 'input';
		}
		return '';
	}

	function findActiveModal() {
		const selectors = ['[role="dialog"]', '[role="alertdialog"]', '[aria-modal="true"]', '.modal', '.overlay'];
		const candidates = Array.from(document.querySelectorAll(selectors.join(',')));
		let best = null;
		let bestZ = -Infinity;
		for (const el of candidates) {
			if (!isVisible(el)) continue;
			let z = parseInt(window.getComputedStyle(el).zIndex || '0', 10);
			if (Number.isNaN(z)) z = 0;
			if (z >= bestZ) {
				bestZ = z;
				best = el;
			}
		}
		return best;
	}

	const activeModal = findActiveModal();
	const root = activeModal || document.body;
	const header = activeModal ? "=== ACTIVE DIALOG ===\n" : "";

	function traverse(node, depth) {
		if (!node || depth > 20) return '';

		if (node.nodeType === Node.TEXT_NODE) {
			const text = cleanText(node.textContent);
			if (text.length > 2) return '  '.repeat(depth) + text + '\n';
			return '';
		}

		if (node.nodeType !== Node.ELEMENT_NODE) return '';

		const el = node;
		if (!isVisible(el)) return '';

		const tag = el.tagName.toLowerCase();
		if (['script', 'style', 'svg', 'path', 'noscript'].includes(tag)) return '';

		let output = '';
		const prefix = '  '.repeat(depth);

		if (isInteractive(el)) {
			const aiId = idCounter++;
			el.setAttribute('data-ai-id', String(aiId));

			const parts = ['<' + tag];

			let label = cleanText(el.innerText || el.textContent || '');
			if (!label) label = cleanText(el.getAttribute('aria-label') || '');
			if (!label) label = cleanText(el.getAttribute('title') || '');
			if ((tag === 'input' || tag === 'textarea') && !label) {
				label = cleanText(el.getAttribute('placeholder') || '');
			}
			if (label) parts.push('label="' + escapeAttr(label) + '"');

			const kind = getKind(el);
			if (kind) parts.push('kind="' + kind + '"');
			if (inDialog(el)) parts.push('context="dialog"');

			if (tag === 'input' || tag === 'textarea') {
				const val = cleanText(el.value);
				if (val) parts.push('value="' + escapeAttr(val) + '"');
			}

			output += prefix + '[' + aiId + '] ' + parts.join(' ') + '>\n';
		} else if (['h1', 'h2', 'h3', 'h4', 'h5'].includes(tag)) {
			output += prefix + '<' + tag + '> ' + cleanText(el.innerText) + '\n';
		}

		for (const child of el.childNodes) {
			output += traverse(child, depth + 1);
		}
		return output;
	}

	return header + traverse(root, 0);
})()`

// Snapshot annotates the page and captures its state: URL, title, the
// interactive-element tree and a JPEG screenshot for the vision prompt.
func (m *Manager) Snapshot() (*PageSnapshot, error) {
	if m == nil || m.Ctx == nil {
		return nil, fmt.Errorf("browser is not initialized")
	}

	var snap PageSnapshot
	err := chromedp.Run(m.Ctx,
		chromedp.Evaluate(annotateScript, &snap.Tree),
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(70).
				Do(ctx)
			if err != nil {
				// Screenshot is advisory; the tree alone is enough to act on.
				return nil
			}
			snap.ScreenshotBase64 = base64.StdEncoding.EncodeToString(buf)
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}
	return &snap, nil
}
