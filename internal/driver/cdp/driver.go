// Package cdp implements the interact.Driver capability on top of chromedp.
// Strategy kinds understood here: "css", "id", "xpath" and "text"; the
// engine itself treats kinds as opaque.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosslocale/internal/interact"
)

const handleAttribute = "data-crosslocale-id"

// isInteractableJS approximates the visibility and enabled checks a native
// click would perform.
const isInteractableJS = `(() => {
	const el = document.querySelector(%q);
	if (!el) return "gone";
	const style = window.getComputedStyle(el);
	if (style.visibility === 'hidden' || style.display === 'none' || style.opacity === '0') return "hidden";
	const rect = el.getBoundingClientRect();
	if (rect.width === 0 || rect.height === 0) return "hidden";
	if (el.disabled || el.getAttribute('aria-disabled') === 'true') return "disabled";
	return "ok";
})()`

// Driver drives one browser tab. Each session owns its own Driver bound to
// its own chromedp tab context.
type Driver struct {
	tabCtx        context.Context
	actionTimeout time.Duration
	log           *zap.Logger
}

// elementHandle is the opaque handle returned to the engine. It carries the
// discovered node plus the tagged selector used to retarget it.
type elementHandle struct {
	node     *cdp.Node
	selector string
}

// New binds a driver to an existing chromedp tab context.
func New(tabCtx context.Context, actionTimeout time.Duration, logger *zap.Logger) *Driver {
	if actionTimeout <= 0 {
		actionTimeout = 10 * time.Second
	}
	return &Driver{
		tabCtx:        tabCtx,
		actionTimeout: actionTimeout,
		log:           logger.Named("cdp"),
	}
}

// Navigate loads a URL in the driver's tab and waits for the body.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	runCtx, cleanup := d.runContext(ctx)
	defer cleanup()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, d.mapError(err, runCtx))
	}
	return nil
}

// FindElement locates at most one element for the strategy and tags it with
// a stable attribute so later actions can retarget it even if the DOM
// shifts. A clean miss is interact.ErrElementNotFound.
func (d *Driver) FindElement(ctx context.Context, kind, value string) (interact.Handle, error) {
	selector, opt, err := strategyQuery(kind, value)
	if err != nil {
		return nil, err
	}

	runCtx, cleanup := d.runContext(ctx)
	defer cleanup()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx,
		chromedp.Nodes(selector, &nodes, opt, chromedp.AtLeast(0)),
	); err != nil {
		return nil, d.mapError(err, runCtx)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s=%q", interact.ErrElementNotFound, kind, value)
	}

	node := nodes[0]
	tag := fmt.Sprintf("crosslocale-%d", time.Now().UnixNano())
	if err := chromedp.Run(runCtx,
		chromedp.SetAttributeValue([]cdp.NodeID{node.NodeID}, handleAttribute, tag, chromedp.ByNodeID),
	); err != nil {
		// Tagging fails when the node vanished between discovery and now.
		return nil, fmt.Errorf("%w: %v", interact.ErrStaleHandle, err)
	}

	return &elementHandle{
		node:     node,
		selector: fmt.Sprintf(`[%s=%q]`, handleAttribute, tag),
	}, nil
}

// PerformAction executes a native action against a found element.
func (d *Driver) PerformAction(ctx context.Context, h interact.Handle, kind interact.ActionKind, payload string) error {
	handle, err := asHandle(h)
	if err != nil {
		return err
	}

	runCtx, cleanup := d.runContext(ctx)
	defer cleanup()

	if err := d.checkInteractable(runCtx, handle); err != nil {
		return err
	}

	var action chromedp.Action
	switch kind {
	case interact.ActionClick:
		action = chromedp.Click(handle.selector, chromedp.ByQuery)
	case interact.ActionType:
		action = chromedp.Tasks{
			chromedp.Clear(handle.selector, chromedp.ByQuery),
			chromedp.SendKeys(handle.selector, payload, chromedp.ByQuery),
		}
	case interact.ActionCheck:
		action = chromedp.Evaluate(fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (el && !el.checked) el.click();
		})()`, handle.selector), nil)
	case interact.ActionReadVisibility:
		visible, err := d.IsVisible(ctx, h)
		if err != nil {
			return err
		}
		if !visible {
			return fmt.Errorf("%w: element is not visible", interact.ErrNotInteractable)
		}
		return nil
	case interact.ActionReadText:
		_, err := d.ReadText(ctx, h)
		return err
	default:
		return fmt.Errorf("unsupported action kind %q", kind)
	}

	if err := chromedp.Run(runCtx, action); err != nil {
		return d.mapError(err, runCtx)
	}
	return nil
}

// ReadText returns the element's rendered text.
func (d *Driver) ReadText(ctx context.Context, h interact.Handle) (string, error) {
	handle, err := asHandle(h)
	if err != nil {
		return "", err
	}

	runCtx, cleanup := d.runContext(ctx)
	defer cleanup()

	var text string
	if err := chromedp.Run(runCtx,
		chromedp.Text(handle.selector, &text, chromedp.ByQuery),
	); err != nil {
		return "", d.mapError(err, runCtx)
	}
	return strings.TrimSpace(text), nil
}

// IsVisible reports whether the element currently renders with a nonzero box.
func (d *Driver) IsVisible(ctx context.Context, h interact.Handle) (bool, error) {
	handle, err := asHandle(h)
	if err != nil {
		return false, err
	}

	runCtx, cleanup := d.runContext(ctx)
	defer cleanup()

	var state string
	if err := chromedp.Run(runCtx,
		chromedp.Evaluate(fmt.Sprintf(isInteractableJS, handle.selector), &state),
	); err != nil {
		return false, d.mapError(err, runCtx)
	}
	return state == "ok", nil
}

// ExecuteScript is the scripted fallback: it performs the action through
// plain DOM JavaScript, bypassing native input events entirely.
func (d *Driver) ExecuteScript(ctx context.Context, h interact.Handle, kind interact.ActionKind, payload string) error {
	handle, err := asHandle(h)
	if err != nil {
		return err
	}

	script, err := fallbackScript(handle.selector, kind, payload)
	if err != nil {
		return err
	}

	runCtx, cleanup := d.runContext(ctx)
	defer cleanup()

	var ok bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("%w: %v", interact.ErrScriptFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: element no longer present", interact.ErrScriptFailed)
	}
	return nil
}

// CaptureScreenshot grabs a viewport capture for failure diagnostics.
func (d *Driver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	runCtx, cleanup := d.runContext(ctx)
	defer cleanup()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, d.mapError(err, runCtx)
	}
	return buf, nil
}

// checkInteractable rejects hidden or disabled elements before a native
// action so the engine can record a precise failure reason and move on.
func (d *Driver) checkInteractable(runCtx context.Context, handle *elementHandle) error {
	var state string
	if err := chromedp.Run(runCtx,
		chromedp.Evaluate(fmt.Sprintf(isInteractableJS, handle.selector), &state),
	); err != nil {
		return d.mapError(err, runCtx)
	}
	switch state {
	case "ok":
		return nil
	case "gone":
		return fmt.Errorf("%w: tagged element disappeared", interact.ErrStaleHandle)
	default:
		return fmt.Errorf("%w: element is %s", interact.ErrNotInteractable, state)
	}
}

// runContext derives a timeout-bounded chromedp context from the tab context
// while still honoring cancellation of the caller's context.
func (d *Driver) runContext(ctx context.Context) (context.Context, func()) {
	runCtx, cancel := context.WithTimeout(d.tabCtx, d.actionTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// mapError translates chromedp failures into the engine's sentinel errors.
func (d *Driver) mapError(err error, runCtx context.Context) error {
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", interact.ErrActionTimeout, err)
	case strings.Contains(err.Error(), "Could not find node"),
		strings.Contains(err.Error(), "No node with given id"):
		return fmt.Errorf("%w: %v", interact.ErrStaleHandle, err)
	default:
		return err
	}
}

func asHandle(h interact.Handle) (*elementHandle, error) {
	handle, ok := h.(*elementHandle)
	if !ok {
		return nil, fmt.Errorf("handle was not produced by the cdp driver: %T", h)
	}
	return handle, nil
}

// strategyQuery maps an opaque (kind, value) strategy onto a chromedp query.
func strategyQuery(kind, value string) (string, chromedp.QueryOption, error) {
	switch strings.ToLower(kind) {
	case "css":
		return value, chromedp.ByQuery, nil
	case "id":
		return "#" + strings.TrimPrefix(value, "#"), chromedp.ByQuery, nil
	case "xpath":
		return value, chromedp.BySearch, nil
	case "text":
		xpath := fmt.Sprintf(`//*[normalize-space(text())=%s]`, xpathLiteral(value))
		return xpath, chromedp.BySearch, nil
	default:
		return "", nil, fmt.Errorf("unsupported strategy kind %q", kind)
	}
}

// fallbackScript builds the JS equivalent of a native action. It returns a
// boolean expression: false when the element is gone.
func fallbackScript(selector string, kind interact.ActionKind, payload string) (string, error) {
	switch kind {
	case interact.ActionClick, interact.ActionCheck:
		return fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (!el) return false;
			el.click();
			return true;
		})()`, selector), nil
	case interact.ActionType:
		return fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (!el) return false;
			el.value = %q;
			el.dispatchEvent(new Event('input', { bubbles: true }));
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		})()`, selector, payload), nil
	case interact.ActionReadVisibility, interact.ActionReadText:
		return fmt.Sprintf(`document.querySelector(%q) !== null`, selector), nil
	default:
		return "", fmt.Errorf("no scripted equivalent for action kind %q", kind)
	}
}

// xpathLiteral quotes a string for embedding in an XPath expression, where
// there is no escape syntax for quotes.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	return "concat('" + strings.Join(parts, `',"'",'`) + "')"
}
