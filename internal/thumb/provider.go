// Package thumb builds thumbnail addresses for assets. Pure string
// construction; fetching and caching the bytes is someone else's job.
package thumb

import (
	"path"
	"strings"

	"github.com/ljarka/immich-timeline/internal/timeline"
)

// Provider implements the timeline.Locator contract.
type Provider struct {
	serverURL string
	mediaRoot string
}

// NewProvider builds a locator for the given photo server and local media
// root.
func NewProvider(serverURL, mediaRoot string) *Provider {
	return &Provider{
		serverURL: strings.TrimRight(serverURL, "/"),
		mediaRoot: mediaRoot,
	}
}

// Thumbnail returns the grid-size address for an asset.
func (p *Provider) Thumbnail(id string, t timeline.AssetType) string {
	if t == timeline.AssetTypeLocal {
		return p.localURL(id)
	}
	return p.serverURL + "/api/assets/" + id + "/thumbnail"
}

// Preview returns the pager-size address for an asset.
func (p *Provider) Preview(id string, t timeline.AssetType) string {
	if t == timeline.AssetTypeLocal {
		return p.localURL(id)
	}
	return p.serverURL + "/api/assets/" + id + "/thumbnail?size=preview"
}

func (p *Provider) localURL(id string) string {
	return "file://" + path.Join("/", p.mediaRoot, id)
}
