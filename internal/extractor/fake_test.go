package extractor

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/website"
)

type fakeElement struct {
	text     string
	attrs    map[string]string
	children map[string][]*fakeElement
	findErrs map[string]error
	clickErr error
	onClick  func()
	clicks   int
}

func (f *fakeElement) Text(context.Context) (string, error) {
	return f.text, nil
}

func (f *fakeElement) Attr(_ context.Context, name string) (string, bool, error) {
	v, ok := f.attrs[name]
	return v, ok, nil
}

func (f *fakeElement) Click(context.Context) error {
	f.clicks++
	if f.clickErr != nil {
		return f.clickErr
	}
	if f.onClick != nil {
		f.onClick()
	}
	return nil
}

func (f *fakeElement) Find(_ context.Context, loc crawler.Locator) (crawler.Element, bool, error) {
	if err := f.findErrs[loc.Name]; err != nil {
		return nil, false, err
	}
	els := f.children[loc.Name]
	if len(els) == 0 {
		return nil, false, nil
	}
	return els[0], true, nil
}

func (f *fakeElement) FindAll(_ context.Context, loc crawler.Locator) ([]crawler.Element, error) {
	if err := f.findErrs[loc.Name]; err != nil {
		return nil, err
	}
	out := make([]crawler.Element, 0, len(f.children[loc.Name]))
	for _, el := range f.children[loc.Name] {
		out = append(out, el)
	}
	return out, nil
}

type fakeNavigator struct {
	mu          sync.Mutex
	page        map[string][]*fakeElement
	url         string
	navigateErr []error
	navigations int
	queries     []string
	waits       map[string]time.Duration
	scrolls     int
	closed      bool
}

func newFakeNavigator() *fakeNavigator {
	return &fakeNavigator{
		page:  make(map[string][]*fakeElement),
		waits: make(map[string]time.Duration),
	}
}

func (n *fakeNavigator) set(name string, els ...*fakeElement) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.page[name] = els
}

func (n *fakeNavigator) Navigate(context.Context, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	i := n.navigations
	n.navigations++
	if i < len(n.navigateErr) {
		return n.navigateErr[i]
	}
	return nil
}

func (n *fakeNavigator) Submit(_ context.Context, _ crawler.Locator, text string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queries = append(n.queries, text)
	return nil
}

func (n *fakeNavigator) Locate(_ context.Context, loc crawler.Locator, wait time.Duration) (crawler.Element, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waits[loc.Name] = wait
	els := n.page[loc.Name]
	if len(els) == 0 {
		return nil, false, nil
	}
	return els[0], true, nil
}

func (n *fakeNavigator) LocateAll(_ context.Context, loc crawler.Locator) ([]crawler.Element, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]crawler.Element, 0, len(n.page[loc.Name]))
	for _, el := range n.page[loc.Name] {
		out = append(out, el)
	}
	return out, nil
}

func (n *fakeNavigator) Scroll(context.Context, crawler.Element) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scrolls++
	return nil
}

func (n *fakeNavigator) CurrentURL(context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.url, nil
}

func (n *fakeNavigator) Close(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSites struct {
	result website.Result
	urls   []string
}

func (f *fakeSites) Scrape(_ context.Context, rawURL string) website.Result {
	f.urls = append(f.urls, rawURL)
	return f.result
}

type fakeImages struct {
	ok   bool
	urls []string
}

func (f *fakeImages) Download(_ context.Context, rawURL, name, category, area string) (string, bool) {
	f.urls = append(f.urls, rawURL)
	if !f.ok {
		return "", false
	}
	return "images_" + area + "/" + category + "_" + name + ".jpg", true
}

// business builds a result anchor whose click swaps in a details pane.
func business(nav *fakeNavigator, name string, pane *fakeElement, pageURL string) *fakeElement {
	return &fakeElement{
		attrs: map[string]string{"aria-label": name},
		onClick: func() {
			nav.mu.Lock()
			defer nav.mu.Unlock()
			nav.page[DetailsPane.Name] = []*fakeElement{pane}
			nav.url = pageURL
		},
	}
}

func textEl(text string) *fakeElement {
	return &fakeElement{text: text}
}

func hoursRow(day, hours string) *fakeElement {
	return &fakeElement{children: map[string][]*fakeElement{
		HoursDay.Name:   {textEl(day)},
		HoursValue.Name: {textEl(hours)},
	}}
}

func fullPane(address, phone, site string) *fakeElement {
	return &fakeElement{children: map[string][]*fakeElement{
		AddressButton.Name: {textEl(address)},
		PhoneButton.Name:   {textEl(phone)},
		WebsiteLink.Name:   {{attrs: map[string]string{"href": site}}},
		HoursTable.Name: {{children: map[string][]*fakeElement{
			HoursRow.Name: {
				hoursRow("Monday", "8 AM–8 PM"),
				hoursRow("Tuesday", "8 AM–8 PM"),
				hoursRow("Holiday hours", "Closed"),
				hoursRow("Sunday", "Closed"),
			},
		}}},
	}}
}
