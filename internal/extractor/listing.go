package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/metrics"
)

var errMissingName = errors.New("result has no name")

// extractListing opens one result and reads its fields. Only the name,
// click and details pane are fatal for the listing.
func (e *Extractor) extractListing(ctx context.Context, unit crawler.SearchUnit, result crawler.Element, logger *zap.Logger) (crawler.Listing, error) {
	name, ok, err := result.Attr(ctx, "aria-label")
	if err != nil {
		return crawler.Listing{}, fmt.Errorf("read name: %w", err)
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return crawler.Listing{}, errMissingName
	}
	if err := result.Click(ctx); err != nil {
		return crawler.Listing{}, fmt.Errorf("open %q: %w", name, err)
	}
	if err := e.sleep(ctx, e.cfg.SettleDelay); err != nil {
		return crawler.Listing{}, err
	}
	pane, ok, err := e.nav.Locate(ctx, DetailsPane, e.cfg.MaxWait)
	if err != nil {
		return crawler.Listing{}, fmt.Errorf("details pane for %q: %w", name, err)
	}
	if !ok {
		return crawler.Listing{}, fmt.Errorf("details pane for %q not found", name)
	}

	listing := crawler.Listing{
		Category: unit.Category,
		Name:     name,
		Hours:    crawler.NewHours(),
	}
	logger = logger.With(zap.String("business", name))

	e.fillAddress(ctx, pane, unit, &listing, logger)
	e.fillPhone(ctx, pane, &listing, logger)
	e.fillWebsite(ctx, pane, &listing, logger)
	e.fillHours(ctx, pane, &listing, logger)
	e.fillImage(ctx, unit, &listing, logger)
	e.fillCoordinates(ctx, &listing, logger)
	return listing, nil
}

func (e *Extractor) fieldFailed(logger *zap.Logger, field string, err error) {
	metrics.ObserveFieldFailure(field)
	logger.Debug("field extraction failed", zap.String("field", field), zap.Error(err))
}

// findText returns the trimmed text of the first match of loc under scope.
func findText(ctx context.Context, scope crawler.Element, loc crawler.Locator) (string, bool, error) {
	el, ok, err := scope.Find(ctx, loc)
	if err != nil || !ok {
		return "", false, err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(text), true, nil
}

func (e *Extractor) fillAddress(ctx context.Context, pane crawler.Element, unit crawler.SearchUnit, l *crawler.Listing, logger *zap.Logger) {
	raw, ok, err := findText(ctx, pane, AddressButton)
	if err != nil {
		e.fieldFailed(logger, "address", err)
		return
	}
	if !ok {
		return
	}
	addr := ParseAddress(raw, unit.PostalHint, unit.Area)
	l.Street, l.Number, l.PostalCode, l.City = addr.Street, addr.Number, addr.PostalCode, addr.City
}

func (e *Extractor) fillPhone(ctx context.Context, pane crawler.Element, l *crawler.Listing, logger *zap.Logger) {
	phone, _, err := findText(ctx, pane, PhoneButton)
	if err != nil {
		e.fieldFailed(logger, "phone", err)
		return
	}
	l.Phone = phone
}

// fillWebsite reads the authority link and, when present, scrapes the site
// for an email and social links.
func (e *Extractor) fillWebsite(ctx context.Context, pane crawler.Element, l *crawler.Listing, logger *zap.Logger) {
	link, ok, err := pane.Find(ctx, WebsiteLink)
	if err != nil {
		e.fieldFailed(logger, "website", err)
		return
	}
	if !ok {
		return
	}
	href, _, err := link.Attr(ctx, "href")
	if err != nil {
		e.fieldFailed(logger, "website", err)
		return
	}
	l.Website = strings.TrimSpace(href)
	if l.Website == "" || e.sites == nil {
		return
	}
	site := e.sites.Scrape(ctx, l.Website)
	l.Email = site.Email
	l.Socials = site.Socials
}

// fillHours keeps rows whose day label is a canonical weekday. A failing row
// is skipped without discarding rows already read.
func (e *Extractor) fillHours(ctx context.Context, pane crawler.Element, l *crawler.Listing, logger *zap.Logger) {
	table, ok, err := pane.Find(ctx, HoursTable)
	if err != nil {
		e.fieldFailed(logger, "hours", err)
		return
	}
	if !ok {
		return
	}
	rows, err := table.FindAll(ctx, HoursRow)
	if err != nil {
		e.fieldFailed(logger, "hours", err)
		return
	}
	for _, row := range rows {
		day, ok, err := findText(ctx, row, HoursDay)
		if err != nil || !ok {
			continue
		}
		hours, _, err := findText(ctx, row, HoursValue)
		if err != nil {
			continue
		}
		l.Hours.Set(DayLabel(day), hours)
	}
}

// fillImage opens the photos tab best-effort, then tries the gallery image
// followed by the generic async image. A downloaded file path wins over the
// remote URL.
func (e *Extractor) fillImage(ctx context.Context, unit crawler.SearchUnit, l *crawler.Listing, logger *zap.Logger) {
	if tab, ok, err := e.nav.Locate(ctx, PhotosTab, 0); err == nil && ok {
		if err := tab.Click(ctx); err != nil {
			logger.Debug("photos tab not clickable", zap.Error(err))
		} else if err := e.sleep(ctx, e.cfg.ScrollPause); err != nil {
			return
		}
	}

	strategies := []struct {
		loc  crawler.Locator
		wait time.Duration
	}{
		{GalleryImage, e.cfg.MaxWait / 2},
		{FallbackImage, 0},
	}
	var src string
	for _, s := range strategies {
		img, ok, err := e.nav.Locate(ctx, s.loc, s.wait)
		if err != nil {
			e.fieldFailed(logger, "image", err)
			continue
		}
		if !ok {
			continue
		}
		value, _, err := img.Attr(ctx, "src")
		if err != nil {
			e.fieldFailed(logger, "image", err)
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			src = value
			break
		}
	}
	if src == "" {
		return
	}
	l.Image = src
	if e.images == nil {
		return
	}
	if stored, ok := e.images.Download(ctx, src, l.Name, unit.Category, unit.Area); ok {
		l.Image = stored
	}
}

func (e *Extractor) fillCoordinates(ctx context.Context, l *crawler.Listing, logger *zap.Logger) {
	current, err := e.nav.CurrentURL(ctx)
	if err != nil {
		e.fieldFailed(logger, "coordinates", err)
		return
	}
	if lat, lng, ok := ParseCoordinates(current); ok {
		l.Latitude, l.Longitude = lat, lng
	}
}
