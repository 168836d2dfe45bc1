package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rcliao/sorma/internal/assistant"
	"github.com/rcliao/sorma/internal/config"
	"github.com/rcliao/sorma/internal/llm"
	"github.com/rcliao/sorma/internal/model"
)

func newTestApp(t *testing.T, backend string) *app {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = backend
	cfg.Owner = config.OwnerConfig{Name: "Chandan", AuthPhrases: []string{"unlock agent chandan"}}
	cfg.Models.Prefer = nil

	a, err := newApp(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewAppBackends(t *testing.T) {
	for _, kind := range []string{"sqlite", "json"} {
		a := newTestApp(t, kind)
		if !a.gate.HasProfile() || a.gate.OwnerName() != "Chandan" {
			t.Errorf("%s: owner not seeded from config", kind)
		}
	}
}

func TestNewAppStoredOwnerOverlaid(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Models.Prefer = nil

	first, err := newApp(context.Background(), cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if first.gate.HasProfile() {
		t.Fatal("expected no profile before init")
	}
	if err := first.backend.SaveOwner(context.Background(), &model.OwnerProfile{
		Name: "Stored", AuthPhrases: []string{"stored phrase"}, WakeWords: []string{"sorma"},
	}); err != nil {
		t.Fatal(err)
	}
	first.Close()

	cfg.Owner.Name = "Configured"
	second, err := newApp(context.Background(), cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	if second.gate.OwnerName() != "Configured" {
		t.Errorf("owner name = %q", second.gate.OwnerName())
	}
	if !second.gate.IsAuthorized("stored phrase") || !second.gate.IsAuthorized("hey sorma") {
		t.Error("stored phrases and wake words should survive the overlay")
	}
}

func TestNewSelectorOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Models.Prefer = []string{"local", "cloud"}
	got := newSelector(cfg, nil).Backends()
	if len(got) != 2 || got[0].Kind() != llm.KindLocal || got[1].Kind() != llm.KindCloud {
		t.Fatalf("unexpected backends: %v", got)
	}

	cfg.Models.Prefer = []string{"cloud"}
	if got := newSelector(cfg, nil).Backends(); len(got) != 1 || got[0].Kind() != llm.KindCloud {
		t.Fatalf("unexpected backends: %v", got)
	}
}

func TestApplyConfigReseedsOwner(t *testing.T) {
	a := newTestApp(t, "json")
	if !a.gate.IsUnlockPhrase("unlock agent chandan") {
		t.Fatal("expected initial phrase to unlock")
	}

	next := config.Default()
	next.Owner = config.OwnerConfig{Name: "Chandan", AuthPhrases: []string{"new secret words"}}
	a.applyConfig(context.Background(), next)

	if a.gate.IsUnlockPhrase("unlock agent chandan") || !a.gate.IsUnlockPhrase("new secret words") {
		t.Error("owner phrases not reloaded")
	}
}

func TestREPL(t *testing.T) {
	a := newTestApp(t, "sqlite")
	in := strings.NewReader(strings.Join([]string{
		"hello",
		"unlock agent chandan",
		"remember the wifi password is on the fridge",
		"",
		"lock",
		"recall",
		"quit",
		"never reached",
	}, "\n"))
	var out bytes.Buffer

	repl(context.Background(), a.asst, in, &out)

	got := out.String()
	for _, want := range []string{
		"Sorry, I only respond to Chandan.",
		"Access granted. Hello, Chandan!",
		"Remembered: the wifi password is on the fridge",
		"Locked.",
		"Goodbye!",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Here's what I remember") {
		t.Error("recall after lock should be denied")
	}
	if n := len(a.mem.Facts(context.Background())); n != 1 {
		t.Errorf("expected 1 fact, got %d", n)
	}
}

func TestFormatReply(t *testing.T) {
	if got := formatReply(assistant.Reply{Text: "hi"}); got != "hi" {
		t.Errorf("got %q", got)
	}
	r := assistant.Reply{Text: "hi", Model: "llama3.2", Backend: llm.KindLocal}
	if got := formatReply(r); got != "hi\n[llama3.2 - local]" {
		t.Errorf("got %q", got)
	}
}

func TestConfigPhraseRemovalRevokesUnlock(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "sqlite")
	if err := a.backend.SaveOwner(ctx, &model.OwnerProfile{
		Name: "Chandan", AuthPhrases: []string{"stored phrase"},
	}); err != nil {
		t.Fatal(err)
	}
	a.applyConfig(ctx, a.cfg)
	if !a.gate.IsUnlockPhrase("unlock agent chandan") {
		t.Fatal("config phrase should unlock")
	}

	a.gate.RecordAccess(ctx)

	stored, err := a.backend.LoadOwner(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.AuthPhrases) != 1 || stored.AuthPhrases[0] != "stored phrase" || stored.LastAccess == nil {
		t.Fatalf("stored profile = %+v", stored)
	}

	a.applyConfig(ctx, &config.Config{Owner: config.OwnerConfig{Name: "Chandan"}})
	if a.gate.IsUnlockPhrase("unlock agent chandan") {
		t.Error("phrase removed from config still unlocks")
	}
	if !a.gate.IsUnlockPhrase("stored phrase") {
		t.Error("stored phrase should still unlock")
	}
}

func TestBuildStats(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, "json")
	if _, err := a.mem.RememberFact(ctx, "tea over coffee", ""); err != nil {
		t.Fatal(err)
	}

	r := buildStats(ctx, a)
	if r.LongTermCount != 1 || r.ShortTermLimit != 50 || len(r.Models) != 0 {
		t.Fatalf("report = %+v", r)
	}
	if !strings.Contains(r.String(), "Models: none configured") {
		t.Errorf("text = %q", r.String())
	}

	a.cfg.Models.Prefer = []string{"local"}
	a.models = newSelector(a.cfg, nil)
	r = buildStats(ctx, a)
	if len(r.Models) != 1 || r.Models[0].Kind != "local" || r.Models[0].Model != "llama3.2" {
		t.Fatalf("models = %+v", r.Models)
	}
	if !strings.Contains(r.String(), "Models: local (llama3.2)") {
		t.Errorf("text = %q", r.String())
	}
}
