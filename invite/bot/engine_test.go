package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/invitebot/core/logger"
	"github.com/m3rciful/invitebot/invite"
	"github.com/m3rciful/invitebot/invite/generator"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

type fakeStorage struct {
	mu     sync.Mutex
	events map[string]*invite.Event
	photos map[string]*invite.Photo
	regs   map[string][]invite.Registration

	saveEventErr error
	lostPhotos   map[string]bool
	adoptFail    map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		events:     make(map[string]*invite.Event),
		photos:     make(map[string]*invite.Photo),
		regs:       make(map[string][]invite.Registration),
		lostPhotos: make(map[string]bool),
		adoptFail:  make(map[string]bool),
	}
}

func (f *fakeStorage) SaveEvent(ctx context.Context, ev *invite.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveEventErr != nil {
		return f.saveEventErr
	}
	cp := *ev
	f.events[ev.EventID] = &cp
	return nil
}

func (f *fakeStorage) GetEvent(ctx context.Context, eventID string) (*invite.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[eventID]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeStorage) GetUserEvents(ctx context.Context, userID int64) ([]invite.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []invite.Event
	for _, ev := range f.events {
		if ev.UserID == userID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (f *fakeStorage) SavePhoto(ctx context.Context, p *invite.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.photos[p.PhotoID] = &cp
	return nil
}

func (f *fakeStorage) GetPhoto(ctx context.Context, photoID string) (*invite.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lostPhotos[photoID] {
		return nil, errors.New("not found")
	}
	p, ok := f.photos[photoID]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStorage) AdoptPhotos(ctx context.Context, eventID string, photoIDs []string) []invite.AdoptResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]invite.AdoptResult, 0, len(photoIDs))
	for _, id := range photoIDs {
		res := invite.AdoptResult{PhotoID: id}
		if f.adoptFail[id] {
			res.Err = errors.New("adopt failed")
		} else if p, ok := f.photos[id]; ok {
			p.EventID = eventID
		} else {
			res.Err = errors.New("not found")
		}
		results = append(results, res)
	}
	return results
}

func (f *fakeStorage) SaveRegistration(ctx context.Context, r *invite.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[r.EventID] = append(f.regs[r.EventID], *r)
	return nil
}

func (f *fakeStorage) GetEventRegistrations(ctx context.Context, eventID string) ([]invite.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invite.Registration(nil), f.regs[eventID]...), nil
}

func (f *fakeStorage) GetRegistrationCount(ctx context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regs[eventID]), nil
}

func (f *fakeStorage) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeStorage) photoCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.photos)
}

func (f *fakeStorage) singleEvent(t *testing.T) *invite.Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) != 1 {
		t.Fatalf("event count = %d, want 1", len(f.events))
	}
	for _, ev := range f.events {
		cp := *ev
		return &cp
	}
	return nil
}

type fakeGenerator struct {
	err   error
	calls int
	facts generator.Facts
}

func (g *fakeGenerator) Generate(ctx context.Context, facts generator.Facts, userID int64) (string, error) {
	g.calls++
	g.facts = facts
	if g.err != nil {
		return "", g.err
	}
	return `<h1>` + facts.Name + `</h1><a href="/event/` + generator.PlaceholderToken + `">Я приду!</a>`, nil
}

// blockingGenerator parks inside Generate until released, modelling a slow
// model call.
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *blockingGenerator) Generate(ctx context.Context, facts generator.Facts, userID int64) (string, error) {
	close(g.started)
	<-g.release
	return `<a href="/event/` + generator.PlaceholderToken + `">Я приду!</a>`, nil
}

type fakeResolver struct {
	err error
}

func (r *fakeResolver) ResolveURL(ctx context.Context, fileID string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "https://files.example/" + fileID, nil
}

func newTestEngine(t *testing.T, st *fakeStorage, gen Generator, files *fakeResolver) *Engine {
	t.Helper()
	e, err := NewEngine(Options{
		Storage:        st,
		Generator:      gen,
		Files:          files,
		Styles:         []string{"классика", "золотой", "минимализм"},
		PublicBaseURL:  "https://invites.example.com",
		MaxUploadBytes: 20 << 20,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func photoInput(n int) MediaInput {
	return MediaInput{
		FileID:   fmt.Sprintf("file-%d", n),
		UniqueID: fmt.Sprintf("uniq-%d", n),
		FileSize: 1024,
		MimeType: "image/jpeg",
	}
}

func TestDraftAccumulatesStepValues(t *testing.T) {
	e := newTestEngine(t, newFakeStorage(), &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()
	const user = int64(10)

	e.Create(ctx, user)
	e.Text(ctx, user, "день рождения")
	e.Text(ctx, user, "Дашин праздник")
	e.Text(ctx, user, "20 июля")
	e.Text(ctx, user, "18:00")
	r := e.Text(ctx, user, "Дом культуры")

	s := e.Sessions().Snapshot(user)
	d := s.Draft
	if d.EventType != "день рождения" || d.Name != "Дашин праздник" ||
		d.Date != "20 июля" || d.Time != "18:00" || d.Location != "Дом культуры" {
		t.Fatalf("draft fields mismatched: %+v", d)
	}
	if s.Step != StepAwaitingStyle {
		t.Fatalf("step = %v, want awaiting_style", s.Step)
	}
	if r.Markup == nil {
		t.Fatal("style prompt should carry buttons")
	}
}

func TestEmptyTextRepromptsSameStep(t *testing.T) {
	e := newTestEngine(t, newFakeStorage(), &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()
	const user = int64(11)

	e.Create(ctx, user)
	r := e.Text(ctx, user, "   ")
	if r.Text != msgEmptyField {
		t.Fatalf("reply = %q, want empty-field reprompt", r.Text)
	}
	if s := e.Sessions().Snapshot(user); s.Step != StepAwaitingType || s.Draft.EventType != "" {
		t.Fatalf("state mutated on invalid input: %+v", s)
	}
}

func TestStyleTextRejectedButtonsRequired(t *testing.T) {
	e := newTestEngine(t, newFakeStorage(), &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()
	const user = int64(12)

	e.Create(ctx, user)
	for _, v := range []string{"юбилей", "Вечер", "1 мая", "19:00", "Парк"} {
		e.Text(ctx, user, v)
	}
	r := e.Text(ctx, user, "золотой")
	if r.Markup == nil {
		t.Fatal("text during style selection should re-prompt with buttons")
	}
	if s := e.Sessions().Snapshot(user); s.Step != StepAwaitingStyle {
		t.Fatalf("step advanced on typed style: %v", s.Step)
	}

	if r := e.Style(ctx, user, 99); r.Markup == nil {
		t.Fatal("out-of-range style index should re-prompt with buttons")
	}
	e.Style(ctx, user, 1)
	if s := e.Sessions().Snapshot(user); s.Step != StepAwaitingMedia || s.Draft.StyleIndex != 1 {
		t.Fatalf("style selection not stored: %+v", s)
	}
}

func TestDoneOutsideMediaNeverFinalizes(t *testing.T) {
	st := newFakeStorage()
	gen := &fakeGenerator{}
	e := newTestEngine(t, st, gen, &fakeResolver{})
	ctx := context.Background()
	const user = int64(13)

	r := e.Done(ctx, user)
	if r.Text != msgNotCreating {
		t.Fatalf("reply = %q, want start-creation-first", r.Text)
	}

	e.Create(ctx, user)
	e.Text(ctx, user, "свадьба")
	before := e.Sessions().Snapshot(user)
	r = e.Done(ctx, user)
	if r.Text != msgNotCreating {
		t.Fatalf("reply = %q, want start-creation-first", r.Text)
	}
	after := e.Sessions().Snapshot(user)
	if after.Step != before.Step || !reflect.DeepEqual(after.Draft, before.Draft) {
		t.Fatalf("draft mutated by rejected /done: before %+v after %+v", before, after)
	}
	if gen.calls != 0 || st.eventCount() != 0 {
		t.Fatalf("finalization ran: calls=%d events=%d", gen.calls, st.eventCount())
	}
}

func TestPhotoOutsideMediaIsNoOp(t *testing.T) {
	st := newFakeStorage()
	e := newTestEngine(t, st, &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()

	r := e.Media(ctx, 14, photoInput(1))
	if !r.Empty() {
		t.Fatalf("expected empty reply, got %q", r.Text)
	}
	if st.photoCount() != 0 {
		t.Fatalf("photo record created outside awaiting_media: %d", st.photoCount())
	}
}

func TestOversizePhotoRejected(t *testing.T) {
	st := newFakeStorage()
	e := newTestEngine(t, st, &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()
	const user = int64(15)

	advanceToMedia(ctx, e, user)
	in := photoInput(1)
	in.FileSize = 21 << 20
	r := e.Media(ctx, user, in)
	if r.Text != msgPhotoTooLarge {
		t.Fatalf("reply = %q, want too-large", r.Text)
	}
	if st.photoCount() != 0 {
		t.Fatal("oversize photo persisted")
	}
	if got := len(e.Sessions().Snapshot(user).Draft.PhotoIDs); got != 0 {
		t.Fatalf("photo count incremented to %d", got)
	}
}

func TestNonImageDocumentRejected(t *testing.T) {
	st := newFakeStorage()
	e := newTestEngine(t, st, &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()
	const user = int64(16)

	advanceToMedia(ctx, e, user)
	in := photoInput(1)
	in.IsDocument = true
	in.MimeType = "application/pdf"
	if r := e.Media(ctx, user, in); r.Text != msgPhotoUnsupported {
		t.Fatalf("reply = %q, want unsupported", r.Text)
	}
	if st.photoCount() != 0 {
		t.Fatal("non-image document persisted")
	}
}

func TestResolverFailureKeepsCountStable(t *testing.T) {
	st := newFakeStorage()
	files := &fakeResolver{err: errors.New("boom")}
	e := newTestEngine(t, st, &fakeGenerator{}, files)
	ctx := context.Background()
	const user = int64(17)

	advanceToMedia(ctx, e, user)
	if r := e.Media(ctx, user, photoInput(1)); r.Text != msgPhotoRetry {
		t.Fatalf("reply = %q, want retry prompt", r.Text)
	}
	if got := len(e.Sessions().Snapshot(user).Draft.PhotoIDs); got != 0 {
		t.Fatalf("count corrupted by failed ingestion: %d", got)
	}

	files.err = errors.New("Request Entity Too Large")
	if r := e.Media(ctx, user, photoInput(2)); r.Text != msgPhotoTooLarge {
		t.Fatalf("reply = %q, want tailored too-large message", r.Text)
	}
}

func TestFinalizationPreservesPhotoOrderAndSkipsMissing(t *testing.T) {
	st := newFakeStorage()
	gen := &fakeGenerator{}
	e := newTestEngine(t, st, gen, &fakeResolver{})
	ctx := context.Background()
	const user = int64(18)

	advanceToMedia(ctx, e, user)
	for i := 1; i <= 3; i++ {
		e.Media(ctx, user, photoInput(i))
	}
	ids := e.Sessions().Snapshot(user).Draft.PhotoIDs
	if len(ids) != 3 {
		t.Fatalf("accepted %d photos, want 3", len(ids))
	}
	st.lostPhotos[ids[1]] = true

	e.Done(ctx, user)

	ev := st.singleEvent(t)
	if len(ev.PhotoURLs) != 2 {
		t.Fatalf("photo urls = %d, want 2 after skip", len(ev.PhotoURLs))
	}
	if ev.PhotoURLs[0] != "https://files.example/file-1" || ev.PhotoURLs[1] != "https://files.example/file-3" {
		t.Fatalf("order not preserved: %v", ev.PhotoURLs)
	}
}

func TestGeneratorFailureLeavesNoEventAndResets(t *testing.T) {
	st := newFakeStorage()
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	e := newTestEngine(t, st, gen, &fakeResolver{})
	ctx := context.Background()
	const user = int64(19)

	advanceToMedia(ctx, e, user)
	e.Media(ctx, user, photoInput(1))
	r := e.Done(ctx, user)

	if r.Text != msgGenerateFailed {
		t.Fatalf("reply = %q, want generation failure", r.Text)
	}
	if st.eventCount() != 0 {
		t.Fatalf("event persisted despite generation failure: %d", st.eventCount())
	}
	if s := e.Sessions().Snapshot(user); s.Step != StepIdle {
		t.Fatalf("session stuck in %v, want idle", s.Step)
	}
}

func TestSaveFailureResetsWithoutSuccessReply(t *testing.T) {
	st := newFakeStorage()
	st.saveEventErr = errors.New("db down")
	e := newTestEngine(t, st, &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()
	const user = int64(20)

	advanceToMedia(ctx, e, user)
	r := e.Done(ctx, user)
	if r.Text != msgSaveFailed {
		t.Fatalf("reply = %q, want save failure", r.Text)
	}
	if s := e.Sessions().Snapshot(user); s.Step != StepIdle {
		t.Fatalf("session stuck in %v, want idle", s.Step)
	}
}

func TestFullScenarioBirthdayWithPhoto(t *testing.T) {
	st := newFakeStorage()
	gen := &fakeGenerator{}
	e := newTestEngine(t, st, gen, &fakeResolver{})
	ctx := context.Background()
	const user = int64(21)

	e.Create(ctx, user)
	e.Text(ctx, user, "день рождения")
	e.Text(ctx, user, "Дашин праздник")
	e.Text(ctx, user, "20 июля")
	e.Text(ctx, user, "18:00")
	e.Text(ctx, user, "Дом культуры")
	e.Style(ctx, user, 1) // золотой
	e.Media(ctx, user, photoInput(1))
	r := e.Done(ctx, user)

	ev := st.singleEvent(t)
	if ev.EventType != "день рождения" {
		t.Fatalf("event type = %q", ev.EventType)
	}
	if gen.facts.Style != "золотой" {
		t.Fatalf("generator got style %q, want золотой", gen.facts.Style)
	}
	if !strings.HasSuffix(r.Text, "/event/"+ev.EventID) {
		t.Fatalf("reply %q does not end with /event/%s", r.Text, ev.EventID)
	}
	if strings.Contains(ev.Content, generator.PlaceholderToken) {
		t.Fatalf("placeholder survived in content")
	}
	if !strings.Contains(ev.Content, ev.EventID) {
		t.Fatalf("content lacks real event id")
	}

	adopted := 0
	for _, p := range st.photos {
		if p.EventID == ev.EventID {
			adopted++
		}
	}
	if adopted != 1 {
		t.Fatalf("adopted photos = %d, want 1", adopted)
	}
	if s := e.Sessions().Snapshot(user); s.Step != StepIdle {
		t.Fatalf("session not reset: %v", s.Step)
	}
}

func TestAdoptionPartialFailureDoesNotFailPipeline(t *testing.T) {
	st := newFakeStorage()
	e := newTestEngine(t, st, &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()
	const user = int64(22)

	advanceToMedia(ctx, e, user)
	e.Media(ctx, user, photoInput(1))
	e.Media(ctx, user, photoInput(2))
	ids := e.Sessions().Snapshot(user).Draft.PhotoIDs
	st.adoptFail[ids[0]] = true

	r := e.Done(ctx, user)
	if !strings.Contains(r.Text, "/event/") {
		t.Fatalf("pipeline failed on partial adoption: %q", r.Text)
	}
	if st.eventCount() != 1 {
		t.Fatalf("event count = %d, want 1", st.eventCount())
	}
}

func TestCommandsDuringGenerationAreBusy(t *testing.T) {
	st := newFakeStorage()
	gen := newBlockingGenerator()
	e := newTestEngine(t, st, gen, &fakeResolver{})
	ctx := context.Background()
	const user = int64(24)

	advanceToMedia(ctx, e, user)
	done := make(chan Reply, 1)
	go func() { done <- e.Done(ctx, user) }()
	<-gen.started

	if r := e.Create(ctx, user); r.Text != msgBusy {
		t.Fatalf("/create during generation replied %q, want busy", r.Text)
	}
	if r := e.Start(ctx, user); r.Text != msgBusy {
		t.Fatalf("/start during generation replied %q, want busy", r.Text)
	}
	if s := e.Sessions().Snapshot(user); s.Step != StepGenerating {
		t.Fatalf("busy command mutated step to %v", s.Step)
	}

	close(gen.release)
	r := <-done
	if !strings.Contains(r.Text, "/event/") {
		t.Fatalf("finalization reply = %q, want share link", r.Text)
	}
	if s := e.Sessions().Snapshot(user); s.Step != StepIdle {
		t.Fatalf("step after finalization = %v, want idle", s.Step)
	}
	if st.eventCount() != 1 {
		t.Fatalf("event count = %d, want 1", st.eventCount())
	}
}

func TestFreshCreateResetsAccumulatedDraft(t *testing.T) {
	e := newTestEngine(t, newFakeStorage(), &fakeGenerator{}, &fakeResolver{})
	ctx := context.Background()
	const user = int64(23)

	e.Create(ctx, user)
	e.Text(ctx, user, "юбилей")
	e.Create(ctx, user)
	s := e.Sessions().Snapshot(user)
	if s.Step != StepAwaitingType || s.Draft.EventType != "" {
		t.Fatalf("fresh /create did not reset: %+v", s)
	}
}

func advanceToMedia(ctx context.Context, e *Engine, user int64) {
	e.Create(ctx, user)
	e.Text(ctx, user, "день рождения")
	e.Text(ctx, user, "Праздник")
	e.Text(ctx, user, "20 июля")
	e.Text(ctx, user, "18:00")
	e.Text(ctx, user, "Дом культуры")
	e.Style(ctx, user, 0)
}
