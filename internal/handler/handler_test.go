package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/eartrainer/internal/exercise"
	"github.com/pavelanni/eartrainer/internal/i18n"
	"github.com/pavelanni/eartrainer/internal/model"
	"github.com/pavelanni/eartrainer/internal/music"
	"github.com/pavelanni/eartrainer/internal/player"
	"github.com/pavelanni/eartrainer/internal/store"
)

// fixedExercise always asks the same two-segment question.
type fixedExercise struct{}

func (fixedExercise) ID() string      { return "fixed" }
func (fixedExercise) Name() string    { return "Fixed" }
func (fixedExercise) Summary() string { return "" }

func (fixedExercise) Question() (model.Question, error) {
	return model.Question{
		Segments: []model.Segment{
			{RightAnswer: "A", PartToPlay: model.SteadyPattern(music.MustParseNotes("A4"))},
			{RightAnswer: "B", PartToPlay: model.SteadyPattern(music.MustParseNotes("B4"))},
		},
		Cadence: model.SteadyPattern(music.MustParseNotes("C4", "E4", "G4")),
	}, nil
}

func (fixedExercise) AnswerList() model.AnswerList {
	return model.AnswerList{Rows: [][]model.Answer{{"A", "B"}}}
}

type fakePlayer struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (p *fakePlayer) PlayMultipleParts(ctx context.Context, parts []player.PartToPlay, obs player.Observer) error {
	p.calls.Add(1)
	if p.started != nil {
		p.started <- struct{}{}
		<-p.release
	}
	for _, part := range parts {
		obs.PartStarted(part.Start)
	}
	return ctx.Err()
}

func newTestServer(t *testing.T, p *fakePlayer) (*httptest.Server, *store.Store) {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := exercise.Default()
	reg.Register("fixed", func() exercise.Exercise { return fixedExercise{} })

	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	New(reg, db, p).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, db
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response of %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createSession(t *testing.T, srv *httptest.Server, exerciseID string) sessionResponse {
	t.Helper()
	var resp sessionResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/sessions", createSessionRequest{ExerciseID: exerciseID}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}
	return resp
}

func TestListExercises(t *testing.T) {
	srv, _ := newTestServer(t, &fakePlayer{})

	var infos []model.ExerciseInfo
	if status := doJSON(t, http.MethodGet, srv.URL+"/exercises", nil, &infos); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(infos) != 4 {
		t.Fatalf("expected 4 exercises, got %d", len(infos))
	}
	if infos[0].ID != exercise.NotesInKeyID || !infos[0].Configurable {
		t.Errorf("unexpected first exercise %+v", infos[0])
	}
}

func TestCreateSession(t *testing.T) {
	srv, _ := newTestServer(t, &fakePlayer{})

	resp := createSession(t, srv, "fixed")
	if resp.ID == "" {
		t.Fatal("expected a session ID")
	}
	if resp.State.Name != "Fixed" || len(resp.State.CurrentAnswers) != 2 {
		t.Errorf("unexpected state %+v", resp.State)
	}

	var got sessionResponse
	if status := doJSON(t, http.MethodGet, srv.URL+"/sessions/"+resp.ID, nil, &got); status != http.StatusOK {
		t.Fatalf("get session: status %d", status)
	}
	if got.ID != resp.ID {
		t.Errorf("expected ID %s, got %s", resp.ID, got.ID)
	}
}

func TestCreateSessionErrors(t *testing.T) {
	srv, _ := newTestServer(t, &fakePlayer{})

	var errResp errorResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/sessions", createSessionRequest{ExerciseID: "nope"}, &errResp)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if errResp.Error != `Exercise "nope" not found` {
		t.Errorf("unexpected error message %q", errResp.Error)
	}

	resp, err := http.Post(srv.URL+"/sessions", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad body, got %d", resp.StatusCode)
	}

	if status := doJSON(t, http.MethodGet, srv.URL+"/sessions/missing", nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown session, got %d", status)
	}
}

func TestAnswerFlow(t *testing.T) {
	srv, _ := newTestServer(t, &fakePlayer{})
	sess := createSession(t, srv, "fixed")
	url := srv.URL + "/sessions/" + sess.ID + "/answer"

	tests := []struct {
		answer    model.Answer
		correct   bool
		completed bool
	}{
		{"B", false, false},
		{"A", true, false},
		{"B", true, true},
	}
	var last answerResponse
	for _, tt := range tests {
		if status := doJSON(t, http.MethodPost, url, answerRequest{Answer: tt.answer}, &last); status != http.StatusOK {
			t.Fatalf("answer %q: status %d", tt.answer, status)
		}
		if last.Correct != tt.correct || last.Completed != tt.completed {
			t.Errorf("answer %q: got correct=%v completed=%v", tt.answer, last.Correct, last.Completed)
		}
	}
	if last.State.TotalQuestions != 1 || last.State.TotalCorrectAnswers != 0 {
		t.Errorf("expected 0/1, got %d/%d", last.State.TotalCorrectAnswers, last.State.TotalQuestions)
	}

	if status := doJSON(t, http.MethodPost, url, answerRequest{Answer: "A"}, nil); status != http.StatusConflict {
		t.Errorf("expected 409 after completion, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, url, answerRequest{}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for an empty answer, got %d", status)
	}

	var next sessionResponse
	if status := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sess.ID+"/next", nil, &next); status != http.StatusOK {
		t.Fatalf("next: status %d", status)
	}
	if next.State.CurrentSegmentToAnswer != 0 || next.State.TotalQuestions != 1 {
		t.Errorf("unexpected state after next %+v", next.State)
	}
}

func TestPlay(t *testing.T) {
	p := &fakePlayer{}
	srv, _ := newTestServer(t, p)
	sess := createSession(t, srv, "fixed")

	var got sessionResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+sess.ID+"/play", playRequest{Cadence: false}, &got)
	if status != http.StatusOK {
		t.Fatalf("play: status %d", status)
	}
	if n := p.calls.Load(); n != 1 {
		t.Errorf("expected 1 playback, got %d", n)
	}
	if got.State.CurrentlyPlayingSegment != nil {
		t.Error("no segment should be playing after the request returns")
	}
}

func TestPlayConflict(t *testing.T) {
	p := &fakePlayer{started: make(chan struct{}), release: make(chan struct{})}
	srv, _ := newTestServer(t, p)
	sess := createSession(t, srv, "fixed")
	url := srv.URL + "/sessions/" + sess.ID + "/play"

	done := make(chan int, 1)
	go func() {
		resp, err := http.Post(url, "application/json", strings.NewReader(`{"cadence":true}`))
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-p.started

	var errResp errorResponse
	if status := doJSON(t, http.MethodPost, url, playRequest{}, &errResp); status != http.StatusConflict {
		t.Errorf("expected 409 while playing, got %d", status)
	}
	if errResp.Error != "Playback is already in progress" {
		t.Errorf("unexpected error message %q", errResp.Error)
	}

	close(p.release)
	if status := <-done; status != http.StatusOK {
		t.Errorf("first playback: expected 200, got %d", status)
	}
}

func TestUpdateSettingsAndFinish(t *testing.T) {
	srv, db := newTestServer(t, &fakePlayer{})
	sess := createSession(t, srv, exercise.NotesInKeyID)
	base := srv.URL + "/sessions/" + sess.ID

	data := model.ExerciseSettingsData{
		GlobalSettings: model.GlobalExerciseSettings{PlayCadence: false},
		ExerciseSettings: model.ExerciseSettings{
			"includedAnswers": model.ListValue("Do", "Re"),
		},
	}
	var got sessionResponse
	if status := doJSON(t, http.MethodPut, base+"/settings", data, &got); status != http.StatusOK {
		t.Fatalf("update settings: status %d", status)
	}
	if got.State.GlobalSettings.PlayCadence {
		t.Error("expected playCadence off")
	}
	if flat := got.State.AnswerList.Flat(); len(flat) != 2 {
		t.Errorf("expected 2 answers, got %v", flat)
	}

	saved, err := db.GetExerciseSettings(context.Background(), exercise.NotesInKeyID)
	if err != nil || saved == nil {
		t.Fatalf("settings not saved: %v", err)
	}

	// A new session for the same exercise starts from the saved settings.
	again := createSession(t, srv, exercise.NotesInKeyID)
	if again.State.GlobalSettings.PlayCadence {
		t.Error("new session should load saved settings")
	}

	var result model.SessionResult
	if status := doJSON(t, http.MethodDelete, base, nil, &result); status != http.StatusOK {
		t.Fatalf("finish: status %d", status)
	}
	if result.ID == 0 || result.ExerciseID != exercise.NotesInKeyID {
		t.Errorf("unexpected result %+v", result)
	}
	if status := doJSON(t, http.MethodGet, base, nil, nil); status != http.StatusNotFound {
		t.Errorf("finished session should be gone, got %d", status)
	}

	results, err := db.ListSessionResults(context.Background(), exercise.NotesInKeyID)
	if err != nil {
		t.Fatalf("ListSessionResults: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 recorded result, got %d", len(results))
	}
}
