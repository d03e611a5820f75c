package session

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dgnsrekt/storycast/internal/audio"
	"github.com/dgnsrekt/storycast/internal/playback"
	"github.com/dgnsrekt/storycast/internal/story"
	"github.com/dgnsrekt/storycast/internal/story/storytest"
)

type fixture struct {
	analyzer *storytest.Analyzer
	synth    *storytest.Synthesizer
	device   *audio.MockDevice
	sess     *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		analyzer: &storytest.Analyzer{Lines: storytest.AliceAndBob()},
		synth:    storytest.NewSynthesizer(),
		device:   audio.NewMockDevice(audio.MockCallbacks{}),
	}
	f.sess = New(f.analyzer, f.synth, f.device, Options{})
	t.Cleanup(func() { _ = f.sess.Close() })
	return f
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)

	if err := f.sess.Analyze(context.Background(), "Alice met Bob."); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	segs := f.sess.Segments()
	wantIDs := []string{"seg-0", "seg-1", "seg-2"}
	if len(segs) != len(wantIDs) {
		t.Fatalf("got %d segments", len(segs))
	}
	for i, id := range wantIDs {
		if segs[i].ID != id {
			t.Errorf("segment %d id = %q, want %q", i, segs[i].ID, id)
		}
	}

	cast := f.sess.Cast()
	want := []story.CastMember{{Speaker: "Alice", Voice: story.VoiceKore}, {Speaker: "Bob", Voice: story.VoiceCharon}}
	if !reflect.DeepEqual(cast, want) {
		t.Errorf("cast = %+v, want %+v", cast, want)
	}
	if f.sess.ID() == "" {
		t.Error("session has no id")
	}
}

func TestAnalyzeRejectsBlank(t *testing.T) {
	f := newFixture(t)
	if err := f.sess.Analyze(context.Background(), " \n\t"); !errors.Is(err, story.ErrInvalidInput) {
		t.Errorf("Analyze() error = %v", err)
	}
	if f.analyzer.CallCount() != 0 {
		t.Error("analyzer called for blank text")
	}
}

func TestAnalyzeFailureLeavesEmptyScript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.sess.Analyze(ctx, "first"); err != nil {
		t.Fatal(err)
	}

	f.analyzer.Err = errors.New("model unavailable")
	err := f.sess.Analyze(ctx, "second")
	if !errors.Is(err, story.ErrAnalysis) {
		t.Fatalf("Analyze() error = %v, want analysis failure", err)
	}
	if n := len(f.sess.Segments()); n != 0 {
		t.Errorf("script has %d segments after failure", n)
	}
}

func TestAnalyzeResetsPlaybackAndCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.sess.Analyze(ctx, "story"); err != nil {
		t.Fatal(err)
	}
	if err := f.sess.Play(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := f.sess.SetSpeed(2.0); err != nil {
		t.Fatal(err)
	}

	if err := f.sess.Analyze(ctx, "story again"); err != nil {
		t.Fatal(err)
	}

	st := f.sess.State()
	if st.IsPlaying || st.Speed != 1.0 || st.CurrentSegmentID != "" {
		t.Errorf("state after analysis = %+v", st)
	}
	if len(f.device.Sounding()) != 0 {
		t.Error("audio still sounding after analysis")
	}
	if n := f.sess.CacheStats().ItemCount; n != 0 {
		t.Errorf("cache holds %d items after analysis", n)
	}
}

func TestSetVoiceInvalidatesOnlySpeaker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.sess.Analyze(ctx, "story"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.sess.ExportAll(ctx); err != nil {
		t.Fatal(err)
	}
	if f.sess.CacheStats().ItemCount != 3 {
		t.Fatal("expected every segment cached")
	}

	ids, err := f.sess.SetVoice("Alice", story.VoicePuck)
	if err != nil {
		t.Fatalf("SetVoice() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"seg-0", "seg-2"}) {
		t.Errorf("affected ids = %v", ids)
	}
	if !f.sess.cache.Contains("seg-1") {
		t.Error("Bob's audio was invalidated")
	}
	if f.sess.cache.Contains("seg-0") || f.sess.cache.Contains("seg-2") {
		t.Error("Alice's audio was not invalidated")
	}

	if _, err := f.sess.ExportSegment(ctx, "seg-0"); err != nil {
		t.Fatal(err)
	}
	calls := f.synth.Calls()
	if last := calls[len(calls)-1]; last.Voice != story.VoicePuck || last.Text != "Hi Bob." {
		t.Errorf("re-synthesis used %+v", last)
	}
}

func TestSetVoiceErrors(t *testing.T) {
	f := newFixture(t)
	if err := f.sess.Analyze(context.Background(), "story"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.sess.SetVoice("Carol", story.VoicePuck); !errors.Is(err, story.ErrInvalidInput) {
		t.Errorf("unknown speaker error = %v", err)
	}
	if _, err := f.sess.SetVoice("Alice", story.Voice("Nobody")); !errors.Is(err, story.ErrInvalidInput) {
		t.Errorf("unknown voice error = %v", err)
	}
}

func TestEndToEndReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var played []string
	f.sess.OnChange(func(st playback.State) {
		if st.Status == playback.StatusPlaying {
			played = append(played, st.CurrentSegmentID)
		}
	})

	if err := f.sess.Analyze(ctx, "Alice: Hi Bob. Bob: Hello Alice. Alice: Nice day."); err != nil {
		t.Fatal(err)
	}
	if err := f.sess.Play(ctx, 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		f.device.Last().Finish()
	}

	if !reflect.DeepEqual(played, []string{"seg-0", "seg-1", "seg-2"}) {
		t.Errorf("played %v", played)
	}
	if st := f.sess.State(); st.Status != playback.StatusStopped || st.IsPlaying {
		t.Errorf("final state = %+v", st)
	}

	voices := make([]story.Voice, 0, 3)
	for _, c := range f.synth.Calls() {
		voices = append(voices, c.Voice)
	}
	want := []story.Voice{story.VoiceKore, story.VoiceCharon, story.VoiceKore}
	if !reflect.DeepEqual(voices, want) {
		t.Errorf("voices = %v, want %v", voices, want)
	}

	if _, err := f.sess.ExportAll(ctx); err != nil {
		t.Fatal(err)
	}
	if n := f.synth.CallCount(); n != 3 {
		t.Errorf("export re-synthesized: %d calls", n)
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.sess.Analyze(ctx, "story"); err != nil {
		t.Fatal(err)
	}
	if err := f.sess.Play(ctx, 0); err != nil {
		t.Fatal(err)
	}

	f.sess.Reset()

	if len(f.sess.Segments()) != 0 {
		t.Error("segments remain after reset")
	}
	if f.sess.State().Status != playback.StatusIdle {
		t.Errorf("status = %v", f.sess.State().Status)
	}
	if len(f.device.Sounding()) != 0 {
		t.Error("audio still sounding after reset")
	}
}
