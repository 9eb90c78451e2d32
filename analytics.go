package smartsearch

import (
	"context"
	"time"
)

// SearchStats returns the recorded search timings with derived latencies.
// Requires WithAdmin. Results are cached until RefreshStats.
func (c *Client) SearchStats(ctx context.Context) ([]TimingBreakdown, error) {
	start := time.Now()
	rows, err := c.stats.Timings(ctx)
	c.obs.observe("search_stats", start, err)
	return rows, err
}

// SearchStatsSummary aggregates SearchStats.
func (c *Client) SearchStatsSummary(ctx context.Context) (TimingSummary, error) {
	start := time.Now()
	s, err := c.stats.Summary(ctx)
	c.obs.observe("search_stats_summary", start, err)
	return s, err
}

// RefreshStats drops the cached timings.
func (c *Client) RefreshStats() {
	c.stats.Refresh()
}

// StreamImages runs the progressive image search, calling onImage for every
// record as it arrives. A new run is ignored with ErrPending while one is
// streaming. On failure the images received so far are returned with the error.
func (c *Client) StreamImages(ctx context.Context, onImage func(ImageResult)) (GalleryResult, error) {
	start := time.Now()
	res, err := c.gallery.Start(ctx, onImage)
	c.obs.observe("stream_images", start, err)
	return res, err
}

// GalleryImages returns the images of the current or last image search.
func (c *Client) GalleryImages() []ImageResult {
	return c.gallery.Images()
}
