package api

import (
	"fmt"
	"time"

	"github.com/osumirror/osu-mirror/internal/db"
)

const (
	osuPreviewBase   = "//b.ppy.sh/preview"
	osuAssetsBaseURL = "https://assets.ppy.sh/beatmaps"
	osuBeatmapURL    = "https://osu.ppy.sh/beatmaps"
)

// statusToRankedInt is the numeric rank state carried next to the textual
// status in the v2 shapes. Same mapping as the legacy approval codes.
func statusToRankedInt(status string) int {
	return statusToApproved(status)
}

// normalizeStatus folds the stored status into the canonical v2 buckets.
func normalizeStatus(status string) string {
	switch status {
	case "approved", "ranked":
		return "ranked"
	case "qualified":
		return "qualified"
	case "loved":
		return "loved"
	case "graveyard":
		return "graveyard"
	default:
		return "pending"
	}
}

func isScoreable(status string) bool {
	switch status {
	case "ranked", "approved", "qualified", "loved":
		return true
	}
	return false
}

type coversV2 struct {
	Cover       string `json:"cover"`
	Cover2x     string `json:"cover@2x"`
	Card        string `json:"card"`
	Card2x      string `json:"card@2x"`
	List        string `json:"list"`
	List2x      string `json:"list@2x"`
	Slimcover   string `json:"slimcover"`
	Slimcover2x string `json:"slimcover@2x"`
}

func coversFor(id int64) coversV2 {
	base := fmt.Sprintf("%s/%d/covers", osuAssetsBaseURL, id)
	return coversV2{
		Cover:       base + "/cover.jpg",
		Cover2x:     base + "/cover@2x.jpg",
		Card:        base + "/card.jpg",
		Card2x:      base + "/card@2x.jpg",
		List:        base + "/list.jpg",
		List2x:      base + "/list@2x.jpg",
		Slimcover:   base + "/slimcover.jpg",
		Slimcover2x: base + "/slimcover@2x.jpg",
	}
}

type availabilityV2 struct {
	DownloadDisabled bool    `json:"download_disabled"`
	MoreInformation  *string `json:"more_information"`
}

type beatmapV2 struct {
	BeatmapsetID     int64      `json:"beatmapset_id"`
	DifficultyRating float64    `json:"difficulty_rating"`
	ID               int64      `json:"id"`
	Mode             string     `json:"mode"`
	Status           string     `json:"status"`
	TotalLength      int64      `json:"total_length"`
	UserID           int64      `json:"user_id"`
	Version          string     `json:"version"`
	Accuracy         float64    `json:"accuracy"`
	AR               float64    `json:"ar"`
	BPM              float64    `json:"bpm"`
	Convert          bool       `json:"convert"`
	CountCircles     int64      `json:"count_circles"`
	CountSliders     int64      `json:"count_sliders"`
	CountSpinners    int64      `json:"count_spinners"`
	CS               float64    `json:"cs"`
	DeletedAt        *time.Time `json:"deleted_at"`
	Drain            float64    `json:"drain"`
	HitLength        int64      `json:"hit_length"`
	IsScoreable      bool       `json:"is_scoreable"`
	LastUpdated      time.Time  `json:"last_updated"`
	Passcount        *int64     `json:"passcount"`
	Playcount        int64      `json:"playcount"`
	Ranked           int        `json:"ranked"`
	URL              string     `json:"url"`
	Checksum         *string    `json:"checksum"`
	ModeInt          int64      `json:"mode_int"`
	MaxCombo         int64      `json:"max_combo"`
}

type beatmapsetV2 struct {
	AnimeCover         bool           `json:"anime_cover"`
	Artist             string         `json:"artist"`
	ArtistUnicode      string         `json:"artist_unicode"`
	Covers             coversV2       `json:"covers"`
	Creator            string         `json:"creator"`
	FavouriteCount     int64          `json:"favourite_count"`
	GenreID            *int64         `json:"genre_id"`
	Hype               any            `json:"hype"`
	ID                 int64          `json:"id"`
	LanguageID         *int64         `json:"language_id"`
	NSFW               bool           `json:"nsfw"`
	Offset             int            `json:"offset"`
	PlayCount          int64          `json:"play_count"`
	PreviewURL         string         `json:"preview_url"`
	Source             *string        `json:"source"`
	Spotlight          bool           `json:"spotlight"`
	Status             string         `json:"status"`
	Title              string         `json:"title"`
	TitleUnicode       string         `json:"title_unicode"`
	TrackID            *int64         `json:"track_id"`
	UserID             *int64         `json:"user_id"`
	Video              bool           `json:"video"`
	BPM                float64        `json:"bpm"`
	CanBeHyped         bool           `json:"can_be_hyped"`
	DeletedAt          *time.Time     `json:"deleted_at"`
	DiscussionEnabled  bool           `json:"discussion_enabled"`
	DiscussionLocked   bool           `json:"discussion_locked"`
	IsScoreable        bool           `json:"is_scoreable"`
	LastUpdated        *time.Time     `json:"last_updated"`
	LegacyThreadURL    *string        `json:"legacy_thread_url"`
	NominationsSummary any            `json:"nominations_summary"`
	Ranked             int            `json:"ranked"`
	RankedDate         *time.Time     `json:"ranked_date"`
	Rating             *float64       `json:"rating"`
	Storyboard         bool           `json:"storyboard"`
	SubmittedDate      *time.Time     `json:"submitted_date"`
	Tags               *string        `json:"tags"`
	Availability       availabilityV2 `json:"availability"`
	Beatmaps           []beatmapV2    `json:"beatmaps"`
	PackTags           []string       `json:"pack_tags"`
}

type searchMetaV2 struct {
	Sort string `json:"sort"`
}

type cursorV2 struct {
	ApprovedDate *int64 `json:"approved_date"`
	ID           *int64 `json:"id"`
}

type searchResponseV2 struct {
	Beatmapsets           []beatmapsetV2 `json:"beatmapsets"`
	Search                searchMetaV2   `json:"search"`
	RecommendedDifficulty *float64       `json:"recommended_difficulty"`
	Error                 *string        `json:"error"`
	Total                 int64          `json:"total"`
	Cursor                *cursorV2      `json:"cursor"`
	CursorString          *string        `json:"cursor_string"`
}

func beatmapV2Row(set *db.Beatmapset, m *db.Beatmap) beatmapV2 {
	bpm := m.BPM
	if bpm == nil {
		bpm = set.BPM
	}
	totalLength := orZeroI(m.TotalLength)
	if m.TotalLength == nil {
		totalLength = orZeroI(m.HitLength)
	}
	return beatmapV2{
		BeatmapsetID:     m.BeatmapsetID,
		DifficultyRating: orZeroF(m.DifficultyRating),
		ID:               m.ID,
		Mode:             m.Mode,
		Status:           normalizeStatus(set.Status),
		TotalLength:      totalLength,
		UserID:           orZeroI(set.CreatorID),
		Version:          m.Version,
		Accuracy:         orZeroF(m.Accuracy),
		AR:               orZeroF(m.AR),
		BPM:              orZeroF(bpm),
		CountCircles:     orZeroI(m.CountCircles),
		CountSliders:     orZeroI(m.CountSliders),
		CountSpinners:    orZeroI(m.CountSpinners),
		CS:               orZeroF(m.CS),
		Drain:            orZeroF(m.Drain),
		HitLength:        orZeroI(m.HitLength),
		IsScoreable:      isScoreable(set.Status),
		LastUpdated:      m.UpdatedAt,
		Playcount:        set.PlayCount,
		Ranked:           statusToRankedInt(set.Status),
		URL:              fmt.Sprintf("%s/%d", osuBeatmapURL, m.ID),
		Checksum:         m.Checksum,
		ModeInt:          m.ModeInt,
		MaxCombo:         orZeroI(m.MaxCombo),
	}
}

func beatmapsetV2FromModel(set *db.Beatmapset) beatmapsetV2 {
	maps := make([]beatmapV2, 0, len(set.Beatmaps))
	for i := range set.Beatmaps {
		maps = append(maps, beatmapV2Row(set, &set.Beatmaps[i]))
	}
	return beatmapsetV2{
		Artist:         set.Artist,
		ArtistUnicode:  orFallback(set.ArtistUnicode, set.Artist),
		Covers:         coversFor(set.ID),
		Creator:        set.Creator,
		FavouriteCount: set.FavouriteCount,
		GenreID:        set.GenreID,
		ID:             set.ID,
		LanguageID:     set.LanguageID,
		NSFW:           set.NSFW,
		PlayCount:      set.PlayCount,
		PreviewURL:     fmt.Sprintf("%s/%d.mp3", osuPreviewBase, set.ID),
		Source:         set.Source,
		Status:         normalizeStatus(set.Status),
		Title:          set.Title,
		TitleUnicode:   orFallback(set.TitleUnicode, set.Title),
		UserID:         set.CreatorID,
		Video:          set.Video,
		BPM:            orZeroF(set.BPM),
		IsScoreable:    isScoreable(set.Status),
		LastUpdated:    set.LastUpdated,
		Ranked:         statusToRankedInt(set.Status),
		RankedDate:     set.RankedDate,
		Rating:         set.Rating,
		Storyboard:     set.Storyboard,
		SubmittedDate:  set.SubmittedDate,
		Tags:           set.Tags,
		Availability: availabilityV2{
			DownloadDisabled: set.DownloadDisabled,
		},
		Beatmaps: maps,
		PackTags: []string{},
	}
}
