package navigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
)

// element is an XPath handle resolved lazily against the live page.
type element struct {
	browser *Browser
	xpath   string
}

// Text returns the node's text content.
func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.browser.run(ctx, e.browser.cfg.ActionTimeout, chromedp.TextContent(e.xpath, &text, chromedp.BySearch)); err != nil {
		return "", fmt.Errorf("text of %s: %w", e.xpath, err)
	}
	return text, nil
}

// Attr returns the named attribute and whether it is present.
func (e *element) Attr(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	if err := e.browser.run(ctx, e.browser.cfg.ActionTimeout, chromedp.AttributeValue(e.xpath, name, &value, &ok, chromedp.BySearch)); err != nil {
		return "", false, fmt.Errorf("attribute %s of %s: %w", name, e.xpath, err)
	}
	return value, ok, nil
}

// Click clicks the node once it is visible.
func (e *element) Click(ctx context.Context) error {
	if err := e.browser.run(ctx, e.browser.cfg.ActionTimeout, chromedp.Click(e.xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("click %s: %w", e.xpath, err)
	}
	return nil
}

// Find resolves loc below this element without waiting.
func (e *element) Find(ctx context.Context, loc crawler.Locator) (crawler.Element, bool, error) {
	return e.browser.locate(ctx, child(e.xpath, loc.XPath), 0)
}

// FindAll resolves every match of loc below this element.
func (e *element) FindAll(ctx context.Context, loc crawler.Locator) ([]crawler.Element, error) {
	return e.browser.locateAll(ctx, child(e.xpath, loc.XPath))
}

// child scopes a relative XPath (".//td") to parent; absolute XPaths are
// returned unchanged and search the whole document.
func child(parent, xpath string) string {
	if !strings.HasPrefix(xpath, ".") {
		return xpath
	}
	return parent + strings.TrimPrefix(xpath, ".")
}

// nth selects the i-th (1-based) match of xpath in document order.
func nth(xpath string, i int) string {
	return fmt.Sprintf("(%s)[%d]", xpath, i)
}

func scrollScript(xpath string) string {
	return fmt.Sprintf(`(() => {
	const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) { return false; }
	el.scrollTop = el.scrollHeight;
	return true;
})()`, xpath)
}
