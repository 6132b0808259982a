package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertBeatmapset inserts or overwrites a beatmapset row by id. On conflict
// every metadata column is replaced, created_at is preserved and updated_at
// is refreshed to the server clock.
func (s *Store) UpsertBeatmapset(ctx context.Context, set *Beatmapset) error {
	now := s.now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO beatmapsets (
			id, title, title_unicode, artist, artist_unicode, creator,
			creator_id, genre_id, language_id, rating,
			source, tags, status, ranked_date, submitted_date, last_updated,
			bpm, video, storyboard, nsfw, favourite_count, play_count,
			availability_download_disabled, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			title_unicode = excluded.title_unicode,
			artist = excluded.artist,
			artist_unicode = excluded.artist_unicode,
			creator = excluded.creator,
			creator_id = excluded.creator_id,
			genre_id = excluded.genre_id,
			language_id = excluded.language_id,
			rating = excluded.rating,
			source = excluded.source,
			tags = excluded.tags,
			status = excluded.status,
			ranked_date = excluded.ranked_date,
			submitted_date = excluded.submitted_date,
			last_updated = excluded.last_updated,
			bpm = excluded.bpm,
			video = excluded.video,
			storyboard = excluded.storyboard,
			nsfw = excluded.nsfw,
			favourite_count = excluded.favourite_count,
			play_count = excluded.play_count,
			availability_download_disabled = excluded.availability_download_disabled,
			updated_at = excluded.updated_at`,
		set.ID, set.Title, ptrArg(set.TitleUnicode), set.Artist, ptrArg(set.ArtistUnicode), set.Creator,
		ptrArg(set.CreatorID), ptrArg(set.GenreID), ptrArg(set.LanguageID), ptrArg(set.Rating),
		ptrArg(set.Source), ptrArg(set.Tags), set.Status,
		timeArg(set.RankedDate), timeArg(set.SubmittedDate), timeArg(set.LastUpdated),
		ptrArg(set.BPM), set.Video, set.Storyboard, set.NSFW, set.FavouriteCount, set.PlayCount,
		set.DownloadDisabled, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert beatmapset %d: %w", set.ID, err)
	}
	return nil
}

// UpsertBeatmap inserts or overwrites a beatmap row by id; same conflict
// policy as UpsertBeatmapset.
func (s *Store) UpsertBeatmap(ctx context.Context, m *Beatmap) error {
	now := s.now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO beatmaps (
			id, beatmapset_id, version, mode, mode_int,
			difficulty_rating, ar, cs, drain, accuracy, bpm,
			total_length, hit_length, max_combo,
			count_circles, count_sliders, count_spinners, checksum,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			beatmapset_id = excluded.beatmapset_id,
			version = excluded.version,
			mode = excluded.mode,
			mode_int = excluded.mode_int,
			difficulty_rating = excluded.difficulty_rating,
			ar = excluded.ar,
			cs = excluded.cs,
			drain = excluded.drain,
			accuracy = excluded.accuracy,
			bpm = excluded.bpm,
			total_length = excluded.total_length,
			hit_length = excluded.hit_length,
			max_combo = excluded.max_combo,
			count_circles = excluded.count_circles,
			count_sliders = excluded.count_sliders,
			count_spinners = excluded.count_spinners,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at`,
		m.ID, m.BeatmapsetID, m.Version, m.Mode, m.ModeInt,
		ptrArg(m.DifficultyRating), ptrArg(m.AR), ptrArg(m.CS), ptrArg(m.Drain), ptrArg(m.Accuracy), ptrArg(m.BPM),
		ptrArg(m.TotalLength), ptrArg(m.HitLength), ptrArg(m.MaxCombo),
		ptrArg(m.CountCircles), ptrArg(m.CountSliders), ptrArg(m.CountSpinners), ptrArg(m.Checksum),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert beatmap %d: %w", m.ID, err)
	}
	return nil
}

// SaveBeatmapset upserts the parent set first, then each child map in order.
// A failing child is logged and skipped; it neither rolls back the parent
// nor stops later children.
func (s *Store) SaveBeatmapset(ctx context.Context, set *Beatmapset) error {
	if err := s.UpsertBeatmapset(ctx, set); err != nil {
		return err
	}
	for i := range set.Beatmaps {
		m := &set.Beatmaps[i]
		if err := s.UpsertBeatmap(ctx, m); err != nil {
			s.log.Error().Err(err).Int64("beatmap_id", m.ID).Int64("beatmapset_id", set.ID).
				Msg("failed to save beatmap")
		}
	}
	return nil
}

const setColumns = `
	id, title, title_unicode, artist, artist_unicode, creator,
	creator_id, genre_id, language_id, rating,
	source, tags, status, ranked_date, submitted_date, last_updated,
	bpm, video, storyboard, nsfw, favourite_count, play_count,
	availability_download_disabled, created_at, updated_at`

func scanBeatmapset(row interface{ Scan(...any) error }) (*Beatmapset, error) {
	var (
		set                                       Beatmapset
		titleUnicode, artistUnicode, source, tags sql.NullString
		creatorID, genreID, languageID            sql.NullInt64
		rating, bpm                               sql.NullFloat64
		rankedDate, submittedDate, lastUpdated    sql.NullInt64
		createdAt, updatedAt                      int64
	)
	err := row.Scan(
		&set.ID, &set.Title, &titleUnicode, &set.Artist, &artistUnicode, &set.Creator,
		&creatorID, &genreID, &languageID, &rating,
		&source, &tags, &set.Status, &rankedDate, &submittedDate, &lastUpdated,
		&bpm, &set.Video, &set.Storyboard, &set.NSFW, &set.FavouriteCount, &set.PlayCount,
		&set.DownloadDisabled, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	set.TitleUnicode = strFromNull(titleUnicode)
	set.ArtistUnicode = strFromNull(artistUnicode)
	set.Source = strFromNull(source)
	set.Tags = strFromNull(tags)
	set.CreatorID = intFromNull(creatorID)
	set.GenreID = intFromNull(genreID)
	set.LanguageID = intFromNull(languageID)
	set.Rating = floatFromNull(rating)
	set.BPM = floatFromNull(bpm)
	set.RankedDate = timeFromNull(rankedDate)
	set.SubmittedDate = timeFromNull(submittedDate)
	set.LastUpdated = timeFromNull(lastUpdated)
	set.CreatedAt = timeFromUnix(createdAt)
	set.UpdatedAt = timeFromUnix(updatedAt)
	return &set, nil
}

const mapColumns = `
	id, beatmapset_id, version, mode, mode_int,
	difficulty_rating, ar, cs, drain, accuracy, bpm,
	total_length, hit_length, max_combo,
	count_circles, count_sliders, count_spinners, checksum,
	created_at, updated_at`

func scanBeatmap(row interface{ Scan(...any) error }) (*Beatmap, error) {
	var (
		m                                         Beatmap
		diff, ar, cs, drain, accuracy, bpm        sql.NullFloat64
		totalLength, hitLength, maxCombo          sql.NullInt64
		countCircles, countSliders, countSpinners sql.NullInt64
		checksum                                  sql.NullString
		createdAt, updatedAt                      int64
	)
	err := row.Scan(
		&m.ID, &m.BeatmapsetID, &m.Version, &m.Mode, &m.ModeInt,
		&diff, &ar, &cs, &drain, &accuracy, &bpm,
		&totalLength, &hitLength, &maxCombo,
		&countCircles, &countSliders, &countSpinners, &checksum,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.DifficultyRating = floatFromNull(diff)
	m.AR = floatFromNull(ar)
	m.CS = floatFromNull(cs)
	m.Drain = floatFromNull(drain)
	m.Accuracy = floatFromNull(accuracy)
	m.BPM = floatFromNull(bpm)
	m.TotalLength = intFromNull(totalLength)
	m.HitLength = intFromNull(hitLength)
	m.MaxCombo = intFromNull(maxCombo)
	m.CountCircles = intFromNull(countCircles)
	m.CountSliders = intFromNull(countSliders)
	m.CountSpinners = intFromNull(countSpinners)
	m.Checksum = strFromNull(checksum)
	m.CreatedAt = timeFromUnix(createdAt)
	m.UpdatedAt = timeFromUnix(updatedAt)
	return &m, nil
}

// GetBeatmapset returns the set with all child maps ordered by id ascending,
// or nil when the id is unknown.
func (s *Store) GetBeatmapset(ctx context.Context, id int64) (*Beatmapset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+setColumns+` FROM beatmapsets WHERE id = ?`, id)
	set, err := scanBeatmapset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get beatmapset %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mapColumns+` FROM beatmaps WHERE beatmapset_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("get beatmaps for set %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanBeatmap(rows)
		if err != nil {
			return nil, err
		}
		set.Beatmaps = append(set.Beatmaps, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// GetBeatmap returns a single difficulty by id, or nil.
func (s *Store) GetBeatmap(ctx context.Context, id int64) (*Beatmap, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mapColumns+` FROM beatmaps WHERE id = ?`, id)
	m, err := scanBeatmap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get beatmap %d: %w", id, err)
	}
	return m, nil
}

// GetBeatmapByChecksum returns the first difficulty with the given content
// hash, or nil.
func (s *Store) GetBeatmapByChecksum(ctx context.Context, md5 string) (*Beatmap, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mapColumns+` FROM beatmaps WHERE checksum = ? LIMIT 1`, md5)
	m, err := scanBeatmap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get beatmap by checksum: %w", err)
	}
	return m, nil
}

// searchWhere builds the shared predicate for SearchBeatmapsets and
// CountBeatmapsets: case-insensitive substring match over title, artist,
// creator and tags, plus an optional status equality filter.
func searchWhere(keyword string, status *string) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if keyword != "" {
		where += ` AND (lower(title) LIKE '%' || lower(?) || '%'
			OR lower(artist) LIKE '%' || lower(?) || '%'
			OR lower(creator) LIKE '%' || lower(?) || '%'
			OR lower(coalesce(tags, '')) LIKE '%' || lower(?) || '%')`
		args = append(args, keyword, keyword, keyword, keyword)
	}
	if status != nil {
		where += " AND status = ?"
		args = append(args, *status)
	}
	return where, args
}

// SearchBeatmapsets returns matching sets ordered by ranked_date descending
// with nulls last. Child maps are not loaded.
func (s *Store) SearchBeatmapsets(ctx context.Context, keyword string, status *string, limit, offset int64) ([]Beatmapset, error) {
	where, args := searchWhere(keyword, status)
	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+setColumns+` FROM beatmapsets`+where+
			` ORDER BY ranked_date IS NULL, ranked_date DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("search beatmapsets: %w", err)
	}
	defer rows.Close()
	var out []Beatmapset
	for rows.Next() {
		set, err := scanBeatmapset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *set)
	}
	return out, rows.Err()
}

// CountBeatmapsets returns the total number of sets matching the same
// predicate as SearchBeatmapsets.
func (s *Store) CountBeatmapsets(ctx context.Context, keyword string, status *string) (int64, error) {
	where, args := searchWhere(keyword, status)
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM beatmapsets`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count beatmapsets: %w", err)
	}
	return total, nil
}
