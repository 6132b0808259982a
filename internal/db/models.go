package db

import "time"

// Beatmapset is the stored metadata row for one downloadable set. Optional
// columns are pointers; nil means the upstream never reported a value.
type Beatmapset struct {
	ID               int64
	Title            string
	TitleUnicode     *string
	Artist           string
	ArtistUnicode    *string
	Creator          string
	CreatorID        *int64
	GenreID          *int64
	LanguageID       *int64
	Rating           *float64
	Source           *string
	Tags             *string
	Status           string
	RankedDate       *time.Time
	SubmittedDate    *time.Time
	LastUpdated      *time.Time
	BPM              *float64
	Video            bool
	Storyboard       bool
	NSFW             bool
	FavouriteCount   int64
	PlayCount        int64
	DownloadDisabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Beatmaps is populated by GetBeatmapset, ordered by id ascending.
	Beatmaps []Beatmap
}

// Beatmap is a single difficulty belonging to a set.
type Beatmap struct {
	ID               int64
	BeatmapsetID     int64
	Version          string
	Mode             string
	ModeInt          int64
	DifficultyRating *float64
	AR               *float64
	CS               *float64
	Drain            *float64
	Accuracy         *float64
	BPM              *float64
	TotalLength      *int64
	HitLength        *int64
	MaxCombo         *int64
	CountCircles     *int64
	CountSliders     *int64
	CountSpinners    *int64
	Checksum         *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
