package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Playly/apperr"
	"Playly/core/auth"
	"Playly/core/ingest"
	"Playly/core/trending"
	"Playly/model"
)

// fakeSongRepo is an in-memory SongRepository.
type fakeSongRepo struct {
	nextID int64
	rows   map[int64]*model.Song
}

func newFakeSongRepo() *fakeSongRepo {
	return &fakeSongRepo{rows: make(map[int64]*model.Song)}
}

func (f *fakeSongRepo) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	f.nextID++
	copied := *song
	copied.ID = f.nextID
	copied.Status = model.SongStatusPending
	f.rows[f.nextID] = &copied
	return f.nextID, nil
}

func (f *fakeSongRepo) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	song, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *song
	return &copied, nil
}

func (f *fakeSongRepo) GetSongsByIDs(ctx context.Context, ids []int64) (map[int64]*model.Song, error) {
	result := make(map[int64]*model.Song, len(ids))
	for _, id := range ids {
		if song, ok := f.rows[id]; ok {
			copied := *song
			result[id] = &copied
		}
	}
	return result, nil
}

func (f *fakeSongRepo) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	songs := make([]*model.Song, 0, len(f.rows))
	for _, song := range f.rows {
		copied := *song
		songs = append(songs, &copied)
	}
	sort.Slice(songs, func(i, j int) bool { return songs[i].ID > songs[j].ID })
	return songs, nil
}

func (f *fakeSongRepo) CountReadySongs(ctx context.Context) (int64, error) {
	var count int64
	for _, song := range f.rows {
		if song.Status == model.SongStatusReady {
			count++
		}
	}
	return count, nil
}

func (f *fakeSongRepo) ListTrending(ctx context.Context, limit int64) ([]*model.Song, error) {
	ready := make([]*model.Song, 0, len(f.rows))
	for _, song := range f.rows {
		if song.Status == model.SongStatusReady {
			copied := *song
			ready = append(ready, &copied)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].PlayCount != ready[j].PlayCount {
			return ready[i].PlayCount > ready[j].PlayCount
		}
		return ready[i].ID < ready[j].ID
	})
	if int64(len(ready)) > limit {
		ready = ready[:limit]
	}
	return ready, nil
}

func (f *fakeSongRepo) SetSongReady(ctx context.Context, id int64, audioURL, coverURL string) error {
	song, ok := f.rows[id]
	if !ok {
		return apperr.NotFound("song", id)
	}
	song.AudioURL = audioURL
	song.CoverURL = coverURL
	song.Status = model.SongStatusReady
	return nil
}

func (f *fakeSongRepo) MarkSongFailed(ctx context.Context, id int64) error {
	if song, ok := f.rows[id]; ok {
		song.Status = model.SongStatusFailed
	}
	return nil
}

func (f *fakeSongRepo) IncrementPlayCount(ctx context.Context, id int64) (*model.Song, error) {
	song, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("song", id)
	}
	song.PlayCount++
	copied := *song
	return &copied, nil
}

func (f *fakeSongRepo) IncrementDownloadCount(ctx context.Context, id int64) (*model.Song, error) {
	song, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("song", id)
	}
	song.DownloadCount++
	copied := *song
	return &copied, nil
}

// fakePlaylistRepo is an in-memory PlaylistRepository with the same
// ownership scoping and toggle semantics as the MySQL implementation.
type fakePlaylistRepo struct {
	nextID int64
	rows   map[int64]*model.Playlist
}

func newFakePlaylistRepo() *fakePlaylistRepo {
	return &fakePlaylistRepo{rows: make(map[int64]*model.Playlist)}
}

func (f *fakePlaylistRepo) CreatePlaylist(ctx context.Context, userID int64, title string) (*model.Playlist, error) {
	if title == "" {
		return nil, apperr.Validation("playlist title is required")
	}
	f.nextID++
	playlist := &model.Playlist{
		ID:      f.nextID,
		UserID:  userID,
		Title:   title,
		SongIDs: []int64{},
	}
	f.rows[f.nextID] = playlist
	copied := *playlist
	return &copied, nil
}

func (f *fakePlaylistRepo) GetPlaylists(ctx context.Context, userID int64) ([]*model.Playlist, error) {
	playlists := make([]*model.Playlist, 0)
	for _, p := range f.rows {
		if p.UserID == userID {
			copied := *p
			playlists = append(playlists, &copied)
		}
	}
	sort.Slice(playlists, func(i, j int) bool { return playlists[i].ID < playlists[j].ID })
	return playlists, nil
}

func (f *fakePlaylistRepo) GetPlaylist(ctx context.Context, userID, playlistID int64) (*model.Playlist, error) {
	p, ok := f.rows[playlistID]
	if !ok || p.UserID != userID {
		return nil, apperr.NotFound("playlist", playlistID)
	}
	copied := *p
	return &copied, nil
}

func (f *fakePlaylistRepo) RenamePlaylist(ctx context.Context, userID, playlistID int64, title string) (*model.Playlist, error) {
	if title == "" {
		return nil, apperr.Validation("playlist title is required")
	}
	p, ok := f.rows[playlistID]
	if !ok || p.UserID != userID {
		return nil, apperr.NotFound("playlist", playlistID)
	}
	p.Title = title
	copied := *p
	return &copied, nil
}

func (f *fakePlaylistRepo) ToggleSong(ctx context.Context, userID, playlistID, songID int64) (*model.Playlist, model.ToggleAction, error) {
	p, ok := f.rows[playlistID]
	if !ok || p.UserID != userID {
		return nil, "", apperr.NotFound("playlist", playlistID)
	}

	for i, id := range p.SongIDs {
		if id == songID {
			p.SongIDs = append(p.SongIDs[:i], p.SongIDs[i+1:]...)
			copied := *p
			return &copied, model.ToggleRemoved, nil
		}
	}
	p.SongIDs = append(p.SongIDs, songID)
	copied := *p
	return &copied, model.ToggleAdded, nil
}

func (f *fakePlaylistRepo) DeletePlaylist(ctx context.Context, userID, playlistID int64) error {
	p, ok := f.rows[playlistID]
	if !ok || p.UserID != userID {
		return apperr.NotFound("playlist", playlistID)
	}
	delete(f.rows, playlistID)
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	nextID int64
	rows   map[int64]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{rows: make(map[int64]*model.User)}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	f.nextID++
	copied := *user
	copied.ID = f.nextID
	f.rows[f.nextID] = &copied
	return f.nextID, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if user, ok := f.rows[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, user := range f.rows {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range f.rows {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

// fakeObjectStore backs the ingestion pipeline in upload tests.
type fakeObjectStore struct {
	uploads map[string][]byte
	fail    bool
}

func (f *fakeObjectStore) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if f.fail {
		return "", errors.New("object store unavailable")
	}
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[objectPath] = data
	return "/static/" + objectPath, nil
}

type testEnv struct {
	router    http.Handler
	songs     *fakeSongRepo
	playlists *fakePlaylistRepo
	users     *fakeUserRepo
	tokens    *auth.TokenIssuer
}

func newTestEnv() *testEnv {
	songs := newFakeSongRepo()
	playlists := newFakePlaylistRepo()
	users := newFakeUserRepo()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	pipeline := ingest.NewPipeline(songs, &fakeObjectStore{})
	ranker := trending.NewRanker(songs, nil)

	handler := NewAPIHandler(songs, playlists, users, pipeline, ranker, nil, tokens)
	return &testEnv{
		router:    NewRouter(handler),
		songs:     songs,
		playlists: playlists,
		users:     users,
		tokens:    tokens,
	}
}

func (e *testEnv) token(t *testing.T, userID int64, isAdmin bool) string {
	t.Helper()
	token, err := e.tokens.GenerateToken(userID, "tester", isAdmin)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, target, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedSong(id int64, status string, playCount int64) {
	e.songs.rows[id] = &model.Song{ID: id, Status: status, PlayCount: playCount, Title: "Seed"}
	if id > e.songs.nextID {
		e.songs.nextID = id
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestAuthRequiredOnPlaylistRoutes(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/api/playlists", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/playlists", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadRequiresAdmin(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/api/songs/upload", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, 1, false))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func multipartUpload(t *testing.T, source string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("source", source))
	for name, mimeType := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		header.Set("Content-Type", mimeType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte{0xAA, 0xBB, 0xCC})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadSongs(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartUpload(t, "community", map[string]string{"track.mp3": "audio/mpeg"})

	req := httptest.NewRequest(http.MethodPost, "/api/songs/upload", body)
	req.Header.Set("Authorization", "Bearer "+env.token(t, 1, true))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var songs []*model.Song
	decodeBody(t, rec, &songs)
	require.Len(t, songs, 1)
	assert.Equal(t, model.SongStatusReady, songs[0].Status)
	assert.Equal(t, "/static/songs/1/audio.mp3", songs[0].AudioURL)
}

func TestUploadRejectsNonAudio(t *testing.T) {
	env := newTestEnv()
	body, contentType := multipartUpload(t, "community", map[string]string{"notes.txt": "text/plain"})

	req := httptest.NewRequest(http.MethodPost, "/api/songs/upload", body)
	req.Header.Set("Authorization", "Bearer "+env.token(t, 1, true))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.songs.rows)
}

func TestToggleSongAddsThenRemoves(t *testing.T) {
	env := newTestEnv()
	env.seedSong(5, model.SongStatusReady, 0)
	_, err := env.playlists.CreatePlaylist(context.Background(), 1, "Favorites")
	require.NoError(t, err)
	token := env.token(t, 1, false)

	rec := env.do(http.MethodPut, "/api/playlists/1/5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp toggleSongResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, model.ToggleAdded, resp.Action)
	assert.Equal(t, []int64{5}, resp.Playlist.SongIDs)
	assert.True(t, resp.Playlist.Contains(5))

	rec = env.do(http.MethodPut, "/api/playlists/1/5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	decodeBody(t, rec, &resp)
	assert.Equal(t, model.ToggleRemoved, resp.Action)
	assert.Empty(t, resp.Playlist.SongIDs)
	assert.False(t, resp.Playlist.Contains(5))
}

func TestToggleSongOnForeignPlaylist(t *testing.T) {
	env := newTestEnv()
	_, err := env.playlists.CreatePlaylist(context.Background(), 2, "Not Yours")
	require.NoError(t, err)

	rec := env.do(http.MethodPut, "/api/playlists/1/5", env.token(t, 1, false), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaylistTracksSkipUnavailableSongs(t *testing.T) {
	env := newTestEnv()
	env.seedSong(1, model.SongStatusReady, 0)
	env.seedSong(2, model.SongStatusPending, 0)
	// Song 3 does not exist at all.
	_, err := env.playlists.CreatePlaylist(context.Background(), 1, "Mixed Bag")
	require.NoError(t, err)
	env.playlists.rows[1].SongIDs = []int64{3, 2, 1}

	rec := env.do(http.MethodGet, "/api/playlists/1", env.token(t, 1, false), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tracks []*model.Song
	decodeBody(t, rec, &tracks)
	require.Len(t, tracks, 1)
	assert.Equal(t, int64(1), tracks[0].ID)
}

func TestCreatePlaylistValidation(t *testing.T) {
	env := newTestEnv()
	token := env.token(t, 1, false)

	rec := env.do(http.MethodPost, "/api/playlists", token, playlistTitleRequest{Title: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/playlists", token, playlistTitleRequest{Title: "Morning Mix"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var playlist model.Playlist
	decodeBody(t, rec, &playlist)
	assert.Equal(t, "Morning Mix", playlist.Title)
	assert.Equal(t, int64(1), playlist.UserID)
	assert.NotNil(t, playlist.SongIDs)

	// A first create for a user yields exactly that one playlist.
	rec = env.do(http.MethodGet, "/api/playlists", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var playlists []*model.Playlist
	decodeBody(t, rec, &playlists)
	require.Len(t, playlists, 1)
	assert.Equal(t, "Morning Mix", playlists[0].Title)
	assert.Empty(t, playlists[0].SongIDs)
}

func TestRenameAndDeletePlaylist(t *testing.T) {
	env := newTestEnv()
	_, err := env.playlists.CreatePlaylist(context.Background(), 1, "Old Name")
	require.NoError(t, err)
	token := env.token(t, 1, false)

	rec := env.do(http.MethodPut, "/api/playlists/1", token, playlistTitleRequest{Title: "New Name"})
	require.Equal(t, http.StatusOK, rec.Code)

	var playlist model.Playlist
	decodeBody(t, rec, &playlist)
	assert.Equal(t, "New Name", playlist.Title)

	rec = env.do(http.MethodDelete, "/api/playlists/1", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/playlists/1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrendingEndpoint(t *testing.T) {
	env := newTestEnv()
	for i := int64(1); i <= 10; i++ {
		env.seedSong(i, model.SongStatusReady, 100-i)
	}
	env.seedSong(11, model.SongStatusPending, 9999)

	rec := env.do(http.MethodGet, "/api/songs/trending", env.token(t, 1, false), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var songs []*model.Song
	decodeBody(t, rec, &songs)
	// ceil(10 * 0.35) = 4, and the pending song never ranks.
	require.Len(t, songs, 4)
	assert.Equal(t, int64(1), songs[0].ID)
	for _, song := range songs {
		assert.Equal(t, model.SongStatusReady, song.Status)
	}
}

func TestPlayCountEndpoint(t *testing.T) {
	env := newTestEnv()
	env.seedSong(1, model.SongStatusReady, 3)
	token := env.token(t, 1, false)

	rec := env.do(http.MethodPut, "/api/songs/1/play", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var song model.Song
	decodeBody(t, rec, &song)
	assert.Equal(t, int64(4), song.PlayCount)

	rec = env.do(http.MethodPut, "/api/songs/99/play", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created authResponse
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "alice", created.User.Username)

	// Duplicate username is rejected.
	rec = env.do(http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "alice", Email: "other@example.com", Password: "hunter2!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "alice", Password: "hunter2!"})
	require.Equal(t, http.StatusOK, rec.Code)

	var logged authResponse
	decodeBody(t, rec, &logged)
	claims, err := env.tokens.ParseToken(logged.Token)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, claims.UserID)

	rec = env.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginByEmail(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "bob", Email: "bob@example.com", Password: "s3cret!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/auth/login", "", loginRequest{Email: "bob@example.com", Password: "s3cret!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var logged authResponse
	decodeBody(t, rec, &logged)
	assert.Equal(t, "bob", logged.User.Username)

	// An email supplied through the username field still resolves.
	rec = env.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "bob@example.com", Password: "s3cret!"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", "", loginRequest{Email: "bob@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSongsIncludesOrphans(t *testing.T) {
	env := newTestEnv()
	env.seedSong(1, model.SongStatusReady, 0)
	env.seedSong(2, model.SongStatusFailed, 0)

	rec := env.do(http.MethodGet, "/api/songs", env.token(t, 1, false), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var songs []*model.Song
	decodeBody(t, rec, &songs)
	assert.Len(t, songs, 2)
}
