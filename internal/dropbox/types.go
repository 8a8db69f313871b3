package dropbox

// SharedLink is a provider-issued public URL for a single file.
type SharedLink struct {
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	PathLower string `json:"path_lower,omitempty"`
}

// FileMetadata is the subset of file metadata returned by uploads.
type FileMetadata struct {
	Name        string `json:"name"`
	PathDisplay string `json:"path_display"`
	PathLower   string `json:"path_lower"`
	Size        int64  `json:"size"`
	ContentHash string `json:"content_hash,omitempty"`
}

// SpaceUsage reports bytes used and bytes allocated for the account.
type SpaceUsage struct {
	Used      int64
	Allocated int64
}

// spaceUsageResponse is the raw get_space_usage response. Allocation is a
// tagged union; only the "allocated" field is read.
type spaceUsageResponse struct {
	Used       int64 `json:"used"`
	Allocation struct {
		Tag       string `json:".tag"`
		Allocated int64  `json:"allocated"`
	} `json:"allocation"`
}
