// Package crawler discovers files exposed by HTTP open directory listings.
//
// # Architecture
//
// The crawler package is designed around the Spider type, which drives a
// breadth-first traversal with three work queues:
//
//   - pending: URLs that have not been classified yet
//   - directories: confirmed directory listings whose links still need reading
//   - files: confirmed files waiting to be handed to the record sink
//
// Each pass of the driver loop drains the queues in that order, so one pass
// corresponds to one level of directory depth. Files found during a level are
// saved with a single SaveFiles call.
//
// # Components
//
//   - Spider: The driver that owns the queues and the visited set
//   - Classifier: Decides whether a URL is a directory, a file, or dropped
//   - Parser / ExtractLinks: Reads the followable anchors of a listing page
//
// # Classification
//
// Two strategies are available and selected once per Spider:
//   - ModeStandard issues a HEAD request. A 200 response with a text/html
//     content type and no Last-Modified header is a generated listing;
//     anything else with status 200 is a file. Other statuses are dropped.
//   - ModeQuick makes no request: URLs ending in "/" are directories and
//     everything else is a file without metadata.
//
// # Usage
//
//	spider := crawler.NewSpider(http.DefaultClient, crawler.WithMode(crawler.ModeQuick))
//	result, err := spider.Crawl(ctx, []string{"http://example.com/pub/"}, store)
//
// Failures on individual URLs never abort a crawl. They are reported in
// Result.Dropped and logged at debug level.
package crawler
