package api

import (
	"strconv"

	"github.com/osumirror/osu-mirror/internal/db"
)

// statusToApproved maps a status name to the legacy numeric approval code.
func statusToApproved(status string) int {
	switch status {
	case "graveyard":
		return -2
	case "wip":
		return -1
	case "pending":
		return 0
	case "ranked":
		return 1
	case "approved":
		return 2
	case "qualified":
		return 3
	case "loved":
		return 4
	default:
		return 0
	}
}

// beatmapV1 is the legacy wire shape: one flat row per difficulty, every
// field a string.
type beatmapV1 struct {
	BeatmapsetID        string  `json:"beatmapset_id"`
	BeatmapID           string  `json:"beatmap_id"`
	Approved            string  `json:"approved"`
	TotalLength         string  `json:"total_length"`
	HitLength           string  `json:"hit_length"`
	Version             string  `json:"version"`
	FileMD5             string  `json:"file_md5"`
	DiffSize            string  `json:"diff_size"`
	DiffOverall         string  `json:"diff_overall"`
	DiffApproach        string  `json:"diff_approach"`
	DiffDrain           string  `json:"diff_drain"`
	Mode                string  `json:"mode"`
	CountNormal         string  `json:"count_normal"`
	CountSlider         string  `json:"count_slider"`
	CountSpinner        string  `json:"count_spinner"`
	SubmitDate          *string `json:"submit_date"`
	ApprovedDate        *string `json:"approved_date"`
	LastUpdate          *string `json:"last_update"`
	Artist              string  `json:"artist"`
	ArtistUnicode       string  `json:"artist_unicode"`
	Title               string  `json:"title"`
	TitleUnicode        string  `json:"title_unicode"`
	Creator             string  `json:"creator"`
	CreatorID           string  `json:"creator_id"`
	BPM                 string  `json:"bpm"`
	Source              string  `json:"source"`
	Tags                string  `json:"tags"`
	GenreID             string  `json:"genre_id"`
	LanguageID          string  `json:"language_id"`
	FavouriteCount      string  `json:"favourite_count"`
	Rating              string  `json:"rating"`
	Storyboard          string  `json:"storyboard"`
	Video               string  `json:"video"`
	DownloadUnavailable string  `json:"download_unavailable"`
	AudioUnavailable    string  `json:"audio_unavailable"`
	Playcount           string  `json:"playcount"`
	Passcount           string  `json:"passcount"`
	Packs               *string `json:"packs"`
	MaxCombo            string  `json:"max_combo"`
	DiffAim             *string `json:"diff_aim"`
	DiffSpeed           *string `json:"diff_speed"`
	DifficultyRating    string  `json:"difficultyrating"`
}

const v1DateFormat = "2006-01-02 15:04:05"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func orZeroI(p *int64) int64 {
	if p != nil {
		return *p
	}
	return 0
}

func orZeroF(p *float64) float64 {
	if p != nil {
		return *p
	}
	return 0
}

func orEmpty(p *string) string {
	if p != nil {
		return *p
	}
	return ""
}

func orFallback(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

// beatmapV1Row flattens one (set, difficulty) pair into a legacy row.
func beatmapV1Row(set *db.Beatmapset, m *db.Beatmap) beatmapV1 {
	totalLength := orZeroI(m.TotalLength)
	if m.TotalLength == nil {
		totalLength = orZeroI(m.HitLength)
	}
	bpm := m.BPM
	if bpm == nil {
		bpm = set.BPM
	}

	var submitDate, approvedDate, lastUpdate *string
	if set.SubmittedDate != nil {
		v := set.SubmittedDate.Format(v1DateFormat)
		submitDate = &v
	}
	if set.RankedDate != nil {
		v := set.RankedDate.Format(v1DateFormat)
		approvedDate = &v
	}
	if set.LastUpdated != nil {
		v := set.LastUpdated.Format(v1DateFormat)
		lastUpdate = &v
	}
	zero := "0"

	return beatmapV1{
		BeatmapsetID:        strconv.FormatInt(set.ID, 10),
		BeatmapID:           strconv.FormatInt(m.ID, 10),
		Approved:            strconv.Itoa(statusToApproved(set.Status)),
		TotalLength:         strconv.FormatInt(totalLength, 10),
		HitLength:           strconv.FormatInt(orZeroI(m.HitLength), 10),
		Version:             m.Version,
		FileMD5:             orEmpty(m.Checksum),
		DiffSize:            formatFloat(orZeroF(m.CS)),
		DiffOverall:         formatFloat(orZeroF(m.Accuracy)),
		DiffApproach:        formatFloat(orZeroF(m.AR)),
		DiffDrain:           formatFloat(orZeroF(m.Drain)),
		Mode:                strconv.FormatInt(m.ModeInt, 10),
		CountNormal:         strconv.FormatInt(orZeroI(m.CountCircles), 10),
		CountSlider:         strconv.FormatInt(orZeroI(m.CountSliders), 10),
		CountSpinner:        strconv.FormatInt(orZeroI(m.CountSpinners), 10),
		SubmitDate:          submitDate,
		ApprovedDate:        approvedDate,
		LastUpdate:          lastUpdate,
		Artist:              set.Artist,
		ArtistUnicode:       orFallback(set.ArtistUnicode, set.Artist),
		Title:               set.Title,
		TitleUnicode:        orFallback(set.TitleUnicode, set.Title),
		Creator:             set.Creator,
		CreatorID:           strconv.FormatInt(orZeroI(set.CreatorID), 10),
		BPM:                 formatFloat(orZeroF(bpm)),
		Source:              orEmpty(set.Source),
		Tags:                orEmpty(set.Tags),
		GenreID:             strconv.FormatInt(orZeroI(set.GenreID), 10),
		LanguageID:          strconv.FormatInt(orZeroI(set.LanguageID), 10),
		FavouriteCount:      strconv.FormatInt(set.FavouriteCount, 10),
		Rating:              formatFloat(orZeroF(set.Rating)),
		Storyboard:          boolDigit(set.Storyboard),
		Video:               boolDigit(set.Video),
		DownloadUnavailable: boolDigit(set.DownloadDisabled),
		AudioUnavailable:    "0",
		Playcount:           strconv.FormatInt(set.PlayCount, 10),
		Passcount:           "0",
		Packs:               nil,
		MaxCombo:            strconv.FormatInt(orZeroI(m.MaxCombo), 10),
		DiffAim:             &zero,
		DiffSpeed:           &zero,
		DifficultyRating:    formatFloat(orZeroF(m.DifficultyRating)),
	}
}
