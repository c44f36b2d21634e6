package api

type FilterState struct {
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	Barangays  []string `json:"barangays,omitempty"`
	Brands     []string `json:"brands,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Stores     []string `json:"stores,omitempty"`

	ActiveFilters int `json:"active_filters"`
}
