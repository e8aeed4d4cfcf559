package models

// Release represents an installable version of an app.
type Release struct {
	// ID is the server-assigned identifier.
	ID ID `json:"id"`

	// Version is the release version string (e.g. "0.1.0").
	Version string `json:"version"`

	// App identifies the app this release belongs to.
	App ReleaseApp `json:"app"`

	// Scopes are the permission scopes the release requests.
	Scopes []string `json:"scopes"`

	// Colour is the display colour of the release.
	Colour string `json:"colour"`

	// Description is the human-readable release description.
	Description string `json:"description"`

	// Flavours are the container image variants of this release.
	Flavours []ReleaseFlavour `json:"flavours"`
}

// ReleaseApp identifies the app a release belongs to.
type ReleaseApp struct {
	// Identifier is the globally unique app identifier.
	Identifier string `json:"identifier"`
}

// ReleaseFlavour is a flavour as embedded in a release.
type ReleaseFlavour struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	Manifest     Any    `json:"manifest"`
	Requirements Any    `json:"requirements"`
}

// ImageReference parses the flavour's container image.
func (f ReleaseFlavour) ImageReference() (ImageRef, error) {
	return ParseImage(f.Image)
}

// ListRelease is the release shape returned by list queries.
type ListRelease struct {
	ID          ID            `json:"id"`
	Version     string        `json:"version"`
	App         ReleaseApp    `json:"app"`
	Installed   bool          `json:"installed"`
	Scopes      []string      `json:"scopes"`
	Flavours    []ListFlavour `json:"flavours"`
	Colour      string        `json:"colour"`
	Description string        `json:"description"`
}

// FlavourNames returns the names of the release's flavours in order.
func (r ListRelease) FlavourNames() []string {
	names := make([]string, 0, len(r.Flavours))
	for _, f := range r.Flavours {
		names = append(names, f.Name)
	}
	return names
}
