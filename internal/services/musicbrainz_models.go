package services

// MusicBrainz web service v2 JSON shapes, limited to the fields used for
// identity matching

// MBTextRepresentation describes the language and script of a release
type MBTextRepresentation struct {
	Language string `json:"language"`
	Script   string `json:"script"`
}

// MBArtistCredit is one credited artist
type MBArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

// MBRecording is a distinct recorded performance
type MBRecording struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Length       int              `json:"length"` // milliseconds
	ISRCs        []string         `json:"isrcs,omitempty"`
	ArtistCredit []MBArtistCredit `json:"artist-credit,omitempty"`
	Releases     []MBRelease      `json:"releases,omitempty"`
}

// LastISRC returns the most recently listed ISRC, or "" when none
func (r *MBRecording) LastISRC() string {
	if r == nil || len(r.ISRCs) == 0 {
		return ""
	}
	return r.ISRCs[len(r.ISRCs)-1]
}

// MBTrack is a track within a medium
type MBTrack struct {
	ID        string       `json:"id"`
	Number    string       `json:"number"`
	Position  int          `json:"position"`
	Title     string       `json:"title"`
	Length    int          `json:"length"`
	Recording *MBRecording `json:"recording,omitempty"`
}

// MBMedium is one disc of a release
type MBMedium struct {
	Position   int       `json:"position"`
	Format     string    `json:"format"`
	TrackCount int       `json:"track-count"`
	Tracks     []MBTrack `json:"tracks,omitempty"`
}

// MBRelease is a release; search results also carry a Score
type MBRelease struct {
	ID                 string               `json:"id"`
	Score              int                  `json:"score,omitempty"`
	Title              string               `json:"title"`
	Status             string               `json:"status,omitempty"`
	Date               string               `json:"date,omitempty"`
	Country            string               `json:"country,omitempty"`
	Barcode            string               `json:"barcode,omitempty"`
	TextRepresentation MBTextRepresentation `json:"text-representation"`
	ArtistCredit       []MBArtistCredit     `json:"artist-credit,omitempty"`
	Media              []MBMedium           `json:"media,omitempty"`
}

// Language returns the release's text language, "" when unknown
func (r *MBRelease) Language() string {
	if r == nil {
		return ""
	}
	return r.TextRepresentation.Language
}

// Medium returns the 1-based disc, or nil when out of range
func (r *MBRelease) Medium(volume int) *MBMedium {
	if r == nil || volume < 1 || volume > len(r.Media) {
		return nil
	}
	return &r.Media[volume-1]
}

// TrackAt returns the 1-based (disc, track) entry, or nil when out of range
func (r *MBRelease) TrackAt(volume, track int) *MBTrack {
	medium := r.Medium(volume)
	if medium == nil || track < 1 || track > len(medium.Tracks) {
		return nil
	}
	return &medium.Tracks[track-1]
}

// MBReleaseSearch is the response of a release search
type MBReleaseSearch struct {
	Count    int         `json:"count"`
	Releases []MBRelease `json:"releases"`
}

// MBISRCLookup is the response of an ISRC lookup
type MBISRCLookup struct {
	ISRC       string        `json:"isrc"`
	Recordings []MBRecording `json:"recordings"`
}
