package subsonic

import "time"

// codeNotFound is the Subsonic error code for a missing entity.
const codeNotFound = 70

// Envelope is the top-level wrapper of every JSON response.
type Envelope struct {
	SubsonicResponse ResponseBody `json:"subsonic-response"`
}

type ResponseBody struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Error         *APIError      `json:"error,omitempty"`
	SearchResult3 *SearchResult3 `json:"searchResult3,omitempty"`
	Song          *Song          `json:"song,omitempty"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type SearchResult3 struct {
	Songs []Song `json:"song,omitempty"`
}

type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Album    string `json:"album,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Duration int    `json:"duration,omitempty"` // seconds
	CoverArt string `json:"coverArt,omitempty"`
	Year     int    `json:"year,omitempty"`
	Suffix   string `json:"suffix,omitempty"`
}

// Length returns the song duration.
func (s Song) Length() time.Duration {
	return time.Duration(s.Duration) * time.Second
}
