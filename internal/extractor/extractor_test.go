package extractor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/website"
)

var madridBakery = crawler.SearchUnit{Area: "Madrid", Category: "Bakery", PostalHint: "28001"}

func testConfig() Config {
	return Config{
		BaseURL:          "https://www.google.com/maps",
		Country:          "Spain",
		MaxAttempts:      3,
		MaxWait:          45 * time.Second,
		MaxExecutionTime: 300 * time.Second,
		RetryDelay:       5 * time.Second,
		SettleDelay:      3 * time.Second,
		ScrollPasses:     3,
		ScrollPause:      2 * time.Second,
		MaxListings:      5,
	}
}

func newTestExtractor(nav *fakeNavigator, sites SiteScraper, images ImageDownloader, clock *fakeClock, cfg Config) *Extractor {
	return New(nav, sites, images, clock, cfg, nil, WithSleep(func(_ context.Context, d time.Duration) error {
		clock.Advance(d)
		return nil
	}))
}

func TestExtractSkipsFailingListings(t *testing.T) {
	t.Parallel()

	nav := newFakeNavigator()
	nav.set(ResultsContainers[0].Name, &fakeElement{})
	nav.set(GalleryImage.Name, &fakeElement{attrs: map[string]string{"src": "https://lh5.example.com/p/photo"}})

	results := make([]*fakeElement, 0, 6)
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("Horno %d", i)
		pane := fullPane(fmt.Sprintf("%d Calle Mayor, 28013, Madrid", i+1), "+34 910 00 00 0"+fmt.Sprint(i), "https://horno.example.com")
		el := business(nav, name, pane, fmt.Sprintf("https://www.google.com/maps/place/Horno/@40.41%d,-3.70%d,17z", i, i))
		if i == 1 || i == 3 {
			el.clickErr = errors.New("stale element reference")
		}
		results = append(results, el)
	}
	nav.set(ResultAnchor.Name, results...)

	sites := &fakeSites{result: website.Result{Email: "hola@horno.example.com", Socials: crawler.Socials{Instagram: "https://instagram.com/horno"}}}
	images := &fakeImages{ok: true}
	clock := &fakeClock{now: time.Unix(0, 0)}
	e := newTestExtractor(nav, sites, images, clock, testConfig())

	listings, err := e.Extract(context.Background(), madridBakery)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, []string{"Bakery near 28001 Madrid Spain"}, nav.queries)
	assert.Equal(t, 3, nav.scrolls)
	assert.Zero(t, results[5].clicks, "results beyond max_listings are not opened")

	for i, want := range []int{0, 2, 4} {
		l := listings[i]
		assert.Equal(t, fmt.Sprintf("Horno %d", want), l.Name)
		assert.Equal(t, "Bakery", l.Category)
		assert.Equal(t, "Calle Mayor", l.Street)
		assert.Equal(t, fmt.Sprint(want+1), l.Number)
		assert.Equal(t, "28013", l.PostalCode)
		assert.Equal(t, "Madrid", l.City)
		assert.Equal(t, "hola@horno.example.com", l.Email)
		assert.Equal(t, "https://instagram.com/horno", l.Socials.Instagram)
		assert.Len(t, l.Hours, 7)
		assert.Equal(t, "8 AM–8 PM", l.Hours["Monday"])
		assert.Equal(t, "Closed", l.Hours["Sunday"])
		assert.Empty(t, l.Hours["Wednesday"])
		assert.Equal(t, fmt.Sprintf("40.41%d", want), l.Latitude)
		assert.Equal(t, fmt.Sprintf("-3.70%d", want), l.Longitude)
		assert.Equal(t, fmt.Sprintf("images_Madrid/Bakery_Horno %d.jpg", want), l.Image)
	}
	assert.Equal(t, 22500*time.Millisecond, nav.waits[GalleryImage.Name])
}

func TestExtractIsolatesFieldFailures(t *testing.T) {
	t.Parallel()

	nav := newFakeNavigator()
	nav.set(ResultsContainers[0].Name, &fakeElement{})
	pane := &fakeElement{
		children: map[string][]*fakeElement{PhoneButton.Name: {textEl("+34 933 000 000")}},
		findErrs: map[string]error{AddressButton.Name: errors.New("detached")},
	}
	nav.set(ResultAnchor.Name, business(nav, "Forn Nou", pane, "https://www.google.com/maps/place/Forn"))

	clock := &fakeClock{now: time.Unix(0, 0)}
	e := newTestExtractor(nav, nil, nil, clock, testConfig())

	listings, err := e.Extract(context.Background(), crawler.SearchUnit{Area: "Barcelona", Category: "Bakery", PostalHint: "08001"})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	l := listings[0]
	assert.Equal(t, "+34 933 000 000", l.Phone)
	assert.Empty(t, l.Street)
	assert.Empty(t, l.City)
	assert.Empty(t, l.Website)
	assert.Empty(t, l.Latitude)
	assert.Empty(t, l.Image)
	assert.Len(t, l.Hours, 7)
}

func TestExtractFallsBackToLaterLocators(t *testing.T) {
	t.Parallel()

	nav := newFakeNavigator()
	nav.set(ResultsContainers[2].Name, &fakeElement{})
	nav.set(FallbackImage.Name, &fakeElement{attrs: map[string]string{"src": "https://lh3.example.com/async"}})
	nav.set(ResultAnchor.Name, business(nav, "Bar Txoko", fullPane("Kalea, 48001, Bilbao", "", ""), ""))

	images := &fakeImages{ok: false}
	clock := &fakeClock{now: time.Unix(0, 0)}
	e := newTestExtractor(nav, nil, images, clock, testConfig())

	listings, err := e.Extract(context.Background(), crawler.SearchUnit{Area: "Bilbao", Category: "Bar", PostalHint: "48001"})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "https://lh3.example.com/async", listings[0].Image)
	assert.Equal(t, []string{"https://lh3.example.com/async"}, images.urls)
	assert.Equal(t, "Kalea", listings[0].Street)
	assert.Empty(t, listings[0].Number)
}

func TestExtractNoResultsIsNotRetried(t *testing.T) {
	t.Parallel()

	nav := newFakeNavigator()
	clock := &fakeClock{now: time.Unix(0, 0)}
	e := newTestExtractor(nav, nil, nil, clock, testConfig())

	listings, err := e.Extract(context.Background(), madridBakery)
	require.ErrorIs(t, err, crawler.ErrNoResults)
	assert.Empty(t, listings)
	assert.Equal(t, 1, nav.navigations)

	nav.set(ResultsContainers[1].Name, &fakeElement{})
	_, err = e.Extract(context.Background(), madridBakery)
	require.ErrorIs(t, err, crawler.ErrNoResults)
}

func TestExtractRetriesThenRecovers(t *testing.T) {
	t.Parallel()

	nav := newFakeNavigator()
	nav.navigateErr = []error{errors.New("net::ERR_CONNECTION_RESET")}
	nav.set(ResultsContainers[0].Name, &fakeElement{})
	nav.set(ResultAnchor.Name, business(nav, "Horno", fullPane("", "", ""), ""))

	clock := &fakeClock{now: time.Unix(0, 0)}
	e := newTestExtractor(nav, nil, nil, clock, testConfig())

	listings, err := e.Extract(context.Background(), madridBakery)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Equal(t, 2, nav.navigations)
}

func TestExtractAttemptsExhausted(t *testing.T) {
	t.Parallel()

	boom := errors.New("tab crashed")
	nav := newFakeNavigator()
	nav.navigateErr = []error{boom, boom, boom, boom}
	clock := &fakeClock{now: time.Unix(0, 0)}
	e := newTestExtractor(nav, nil, nil, clock, testConfig())

	listings, err := e.Extract(context.Background(), madridBakery)
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, listings)
	assert.Equal(t, 3, nav.navigations)
}

func TestExtractStopsAtExecutionBudget(t *testing.T) {
	t.Parallel()

	boom := errors.New("timeout")
	nav := newFakeNavigator()
	nav.navigateErr = []error{boom, boom, boom}
	clock := &fakeClock{now: time.Unix(0, 0)}
	cfg := testConfig()
	cfg.RetryDelay = 200 * time.Second
	e := newTestExtractor(nav, nil, nil, clock, cfg)

	_, err := e.Extract(context.Background(), madridBakery)
	require.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Equal(t, 2, nav.navigations)
}

func TestExtractReturnsContextErrors(t *testing.T) {
	t.Parallel()

	nav := newFakeNavigator()
	nav.navigateErr = []error{context.Canceled}
	clock := &fakeClock{now: time.Unix(0, 0)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(nav, nil, nil, clock, testConfig(), nil, WithSleep(func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}))

	_, err := e.Extract(ctx, madridBakery)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, nav.navigations)
}
