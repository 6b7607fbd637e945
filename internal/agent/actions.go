package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"cartagent/internal/browser"
	"cartagent/internal/llm"
)

// Page is what the run loop needs from the browser layer.
type Page interface {
	Snapshot() (*browser.PageSnapshot, error)
	Evaluate(ctx context.Context, expr string, res any) error
	Execute(ctx context.Context, action llm.Action) error
}

// CDPPage executes model actions against the live Chrome tab.
type CDPPage struct {
	mgr *browser.Manager
}

func NewCDPPage(mgr *browser.Manager) *CDPPage {
	return &CDPPage{mgr: mgr}
}

func (p *CDPPage) Snapshot() (*browser.PageSnapshot, error) {
	return p.mgr.Snapshot()
}

func (p *CDPPage) Evaluate(ctx context.Context, expr string, res any) error {
	return p.mgr.Evaluate(ctx, expr, res)
}

// clickHelper clicks the resolved node, walking up to a clickable ancestor
// when the annotated element itself is a span or icon inside a button, and
// routing label clicks to the radio/checkbox they wrap.
const clickHelper = `function() {
	try {
		if (this.scrollIntoViewIfNeeded) {
			this.scrollIntoViewIfNeeded();
		} else if (this.scrollIntoView) {
			this.scrollIntoView({ block: "center", inline: "center" });
		}

		const isClickable = (el) => {
			if (!el) return false;
			const tag = (el.tagName || "").toLowerCase();
			const role = (el.getAttribute && (el.getAttribute("role") || "").toLowerCase()) || "";

			if (tag === "button" || tag === "a" || tag === "label") return true;
			if (tag === "input") {
				const type = (el.type || "").toLowerCase();
				if (type === "button" || type === "submit" || type === "radio" || type === "checkbox") return true;
			}
			return role === "button" || role === "link" || role === "radio" || role === "checkbox";
		};

		const clickInputInLabel = (label) => {
			if (!label) return false;
			const input = label.querySelector("input[type='radio'],input[type='checkbox']");
			if (input) {
				input.click();
				return true;
			}
			return false;
		};

		let el = this;
		if (el.closest && clickInputInLabel(el.closest("label"))) return;

		for (let i = 0; i < 5 && el; i++) {
			if (isClickable(el)) {
				if (el.tagName && el.tagName.toLowerCase() === "label" && clickInputInLabel(el)) return;
				el.click();
				return;
			}
			if (el.closest && clickInputInLabel(el.closest("label"))) return;
			el = el.parentElement;
		}

		this.click();
	} catch (e) {
		console.log("click helper error", e);
	}
}`

func (p *CDPPage) Execute(ctx context.Context, action llm.Action) error {
	if action.Type == llm.ActionScroll {
		return p.Evaluate(ctx, `window.scrollBy({top: 500, behavior: 'smooth'});`, nil)
	}
	if action.TargetID == 0 {
		return nil
	}

	selector := fmt.Sprintf("[data-ai-id='%d']", action.TargetID)

	runCtx, cancel := p.mgr.TabContext(ctx)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		doc, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return fmt.Errorf("get document failed: %w", err)
		}
		nodeID, err := dom.QuerySelector(doc.NodeID, selector).Do(ctx)
		if err != nil || nodeID == 0 {
			return fmt.Errorf("target %d not found on page", action.TargetID)
		}
		obj, err := dom.ResolveNode().WithNodeID(nodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node failed: %w", err)
		}
		if obj == nil || obj.ObjectID == "" {
			return fmt.Errorf("object id is empty (node might be detached)")
		}

		switch action.Type {
		case llm.ActionClick:
			_, _, err = runtime.CallFunctionOn(clickHelper).
				WithObjectID(obj.ObjectID).
				Do(ctx)
			return err

		case llm.ActionTypeInput:
			quoted, _ := json.Marshal(action.Text)
			script := fmt.Sprintf(`function() {
				if (this.scrollIntoViewIfNeeded) {
					this.scrollIntoViewIfNeeded();
				} else if (this.scrollIntoView) {
					this.scrollIntoView({ block: "center", inline: "center" });
				}
				this.value = "";
				this.value = %s;
				this.dispatchEvent(new Event('input', { bubbles: true }));
				this.dispatchEvent(new Event('change', { bubbles: true }));
			}`, quoted)

			if _, _, err = runtime.CallFunctionOn(script).
				WithObjectID(obj.ObjectID).
				Do(ctx); err != nil {
				return err
			}

			if action.Submit {
				_ = dom.Focus().WithNodeID(nodeID).Do(ctx)
				return chromedp.KeyEvent(kb.Enter).Do(ctx)
			}
			return nil

		default:
			return fmt.Errorf("unknown action type: %s", action.Type)
		}
	}))
}

// confirmDestructiveAction asks the operator to approve an action the model
// flagged as destructive (payment, deletion). Without a TTY it is refused.
func confirmDestructiveAction(action llm.Action) bool {
	fmt.Printf("⚠️ The model suggests a DESTRUCTIVE action (payment, deletion, etc.).\n")
	fmt.Printf("   Planned action: %s [%d] %q\n", action.Type, action.TargetID, action.Text)
	fmt.Print("   Allow this action? (y/n): ")

	tty, err := os.Open("/dev/tty")
	if err != nil {
		fmt.Println(" (no TTY, auto-cancel)")
		return false
	}
	defer tty.Close()

	reader := bufio.NewReader(tty)
	for {
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nDestructive action cancelled (read error).")
			return false
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			fmt.Println("Destructive action approved by user.")
			return true
		case "n", "no", "":
			fmt.Println("Destructive action cancelled by user.")
			return false
		}
		fmt.Print("   Please answer 'y' or 'n': ")
	}
}
