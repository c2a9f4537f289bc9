package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/finger"
)

// newTestStore creates a Store in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func learnedRanges() map[finger.Channel]calibration.Range {
	return map[finger.Channel]calibration.Range{
		finger.ThumbMCP: {Min: 150, Max: 179, Inverted: true},
		finger.Index:    {Min: 12.5, Max: 178},
		finger.Pinky:    {Min: 30, Max: 170},
	}
}

func TestProfileRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	p := &Profile{Name: "desk", Ranges: learnedRanges(), Samples: 240}
	if err := repo.Create(p); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	if p.ID == "" {
		t.Error("ID should be generated")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("timestamps should be set after create")
	}

	got, err := repo.GetByID(p.ID)
	if err != nil {
		t.Fatalf("failed to get profile by ID: %v", err)
	}
	if got.Name != "desk" || got.Samples != 240 {
		t.Errorf("got %+v", got)
	}
	if len(got.Ranges) != 3 {
		t.Fatalf("ranges = %v, want 3 entries", got.Ranges)
	}
	for ch, want := range learnedRanges() {
		if got.Ranges[ch] != want {
			t.Errorf("range %s = %+v, want %+v", ch, got.Ranges[ch], want)
		}
	}
}

func TestProfileRepository_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	if err := repo.Create(&Profile{Name: "desk"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(&Profile{Name: "desk"}); err == nil {
		t.Error("duplicate profile name should fail")
	}
}

func TestProfileRepository_GetByName(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	p := &Profile{Name: "glove", Ranges: learnedRanges()}
	if err := repo.Create(p); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByName("glove")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("ID = %q, want %q", got.ID, p.ID)
	}

	if _, err := repo.GetByName("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByName(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestProfileRepository_Save(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	first := &Profile{Name: "desk", Ranges: learnedRanges(), Samples: 10}
	if err := repo.Save(first); err != nil {
		t.Fatalf("Save() create error = %v", err)
	}

	second := &Profile{
		Name:    "desk",
		Ranges:  map[finger.Channel]calibration.Range{finger.Middle: {Min: 9, Max: 176}},
		Samples: 20,
	}
	if err := repo.Save(second); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Save should keep the existing ID: %q vs %q", second.ID, first.ID)
	}

	got, err := repo.GetByName("desk")
	if err != nil {
		t.Fatal(err)
	}
	if got.Samples != 20 || len(got.Ranges) != 1 {
		t.Errorf("after update got samples %d ranges %v", got.Samples, got.Ranges)
	}

	list, _ := repo.List()
	if len(list) != 1 {
		t.Errorf("List() returned %d profiles, want 1", len(list))
	}
}

func TestProfileRepository_UpdateMissing(t *testing.T) {
	s := newTestStore(t)

	err := s.Profiles().Update(&Profile{ID: "nope", Name: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestProfileRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}

	for _, name := range []string{"a", "b", "c"} {
		if err := repo.Create(&Profile{Name: name, Ranges: learnedRanges()}); err != nil {
			t.Fatal(err)
		}
	}

	list, err = repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d profiles, want 3", len(list))
	}
	for _, p := range list {
		if len(p.Ranges) != 3 {
			t.Errorf("profile %s has %d ranges", p.Name, len(p.Ranges))
		}
	}
}

func TestProfileRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	p := &Profile{Name: "desk", Ranges: learnedRanges()}
	if err := repo.Create(p); err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete(p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted profile still found: %v", err)
	}

	// Ranges are removed with the profile.
	var count int
	s.DB().QueryRow(`SELECT COUNT(*) FROM profile_ranges WHERE profile_id = ?`, p.ID).Scan(&count)
	if count != 0 {
		t.Errorf("%d orphaned ranges remain", count)
	}

	if err := repo.Delete(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	settings := s.Settings()

	if _, err := settings.Get(SettingActiveProfile); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := settings.Set(SettingActiveProfile, "desk"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := settings.Set(SettingActiveProfile, "glove"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	v, err := settings.Get(SettingActiveProfile)
	if err != nil || v != "glove" {
		t.Errorf("Get() = %q, %v; want glove", v, err)
	}

	if err := settings.Delete(SettingActiveProfile); err != nil {
		t.Fatal(err)
	}
	if _, err := settings.Get(SettingActiveProfile); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}
