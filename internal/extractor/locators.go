package extractor

import "github.com/JakeFAU/directory-crawler/internal/crawler"

// Page locators for the maps directory. Results containers and image
// locators are ordered strategies: the first that resolves wins.
var (
	SearchBox = crawler.Locator{Name: "search_box", XPath: "//input[@id='searchboxinput']"}

	ResultsContainers = []crawler.Locator{
		{Name: "results_en", XPath: "//div[contains(@aria-label, 'Results')]"},
		{Name: "results_es", XPath: "//div[contains(@aria-label, 'Resultados')]"},
		{Name: "results_scrollbox", XPath: "//div[contains(@class, 'section-scrollbox')]"},
	}

	ResultAnchor = crawler.Locator{Name: "result", XPath: "//*[contains(concat(' ', normalize-space(@class), ' '), ' hfpxzc ')]"}
	DetailsPane  = crawler.Locator{Name: "details", XPath: "//div[contains(@class, 'm6QErb')]"}

	AddressButton = crawler.Locator{Name: "address", XPath: "//button[@data-item-id='address']"}
	PhoneButton   = crawler.Locator{Name: "phone", XPath: "//button[contains(@data-item-id, 'phone')]"}
	WebsiteLink   = crawler.Locator{Name: "website", XPath: "//a[@data-item-id='authority']"}

	HoursTable = crawler.Locator{Name: "hours", XPath: "//table[contains(@class, 'y0skZc')]"}
	HoursRow   = crawler.Locator{Name: "hours_row", XPath: ".//tr"}
	HoursDay   = crawler.Locator{Name: "hours_day", XPath: ".//td[1]"}
	HoursValue = crawler.Locator{Name: "hours_value", XPath: ".//td[2]"}

	PhotosTab     = crawler.Locator{Name: "photos_tab", XPath: "//button[contains(@aria-label, 'Photos')]"}
	GalleryImage  = crawler.Locator{Name: "gallery_image", XPath: "//img[contains(@class, 'gallery-image') or contains(@alt, 'Photo of')]"}
	FallbackImage = crawler.Locator{Name: "async_image", XPath: "//img[@decoding='async']"}
)
