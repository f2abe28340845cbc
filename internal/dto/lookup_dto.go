package dto

type GeocodeResponse struct {
	Latitude    float64           `json:"lat"`
	Longitude   float64           `json:"lng"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address,omitempty"`
	Fallback    bool              `json:"fallback"`
}

type AnalyzeAlertRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	LocationLat *float64 `json:"location_lat"`
	LocationLng *float64 `json:"location_lng"`
}

type AnalyzeAlertResponse struct {
	Category        string   `json:"category"`
	Severity        string   `json:"severity"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations"`
	IsDuplicate     bool     `json:"is_duplicate"`
}
