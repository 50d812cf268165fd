package item

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/barangku/service/internal/auth"
	"github.com/barangku/service/internal/storage"
)

var (
	owner = auth.Identity{Subject: "u@x.com"}
	other = auth.Identity{Subject: "v@x.com"}
	admin = auth.Identity{Subject: "__admin__", Admin: true}
)

// flakyStorage wraps a LocalStorage and can be told to fail deletes,
// either all of them or those whose key starts with failPrefix.
type flakyStorage struct {
	*storage.LocalStorage
	failDelete bool
	failPrefix string
}

func (s *flakyStorage) Delete(ctx context.Context, key string) error {
	if s.failDelete || (s.failPrefix != "" && strings.HasPrefix(key, s.failPrefix)) {
		return errors.New("disk on fire")
	}
	return s.LocalStorage.Delete(ctx, key)
}

// failingCreateRepo rejects every insert.
type failingCreateRepo struct {
	*MemoryRepository
}

func (failingCreateRepo) Create(context.Context, *Item) error {
	return errors.New("database unavailable")
}

type fixture struct {
	svc   *Service
	repo  *MemoryRepository
	store *flakyStorage
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	local, err := storage.NewLocalStorage(dir, "static/uploads")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	repo := NewMemoryRepository()
	store := &flakyStorage{LocalStorage: local}
	svc := NewService(repo, store, Options{AllowedImageExtensions: []string{"jpg", "jpeg", "png"}})
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 1000, time.UTC) }
	return &fixture{svc: svc, repo: repo, store: store, dir: dir}
}

func chairForm() Form {
	return Form{Name: "Chair", Category: "Furniture", Quantity: "4"}
}

func pngImage(name string) *Image {
	return &Image{Filename: name, Size: 3, ContentType: "image/png", Body: strings.NewReader("png")}
}

func TestService_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Create(ctx, owner, chairForm(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	it, err := f.svc.Get(ctx, owner, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if it.Name != "Chair" || it.Category != "Furniture" || it.Quantity != 4 || it.OwnerID != owner.Subject {
		t.Errorf("stored item = %+v", it)
	}
	if it.ImagePath != nil {
		t.Errorf("ImagePath = %q, want nil", *it.ImagePath)
	}
}

func TestService_CreateWithImage(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.Create(context.Background(), owner, chairForm(), pngImage("Photo.PNG"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	it, _ := f.repo.GetByID(context.Background(), id)
	if it.ImagePath == nil || *it.ImagePath != "u_20261019100000000001.png" {
		t.Fatalf("ImagePath = %v", it.ImagePath)
	}
	data, err := os.ReadFile(filepath.Join(f.dir, *it.ImagePath))
	if err != nil || string(data) != "png" {
		t.Errorf("stored file = %q, %v", data, err)
	}
}

func TestService_CreateRejections(t *testing.T) {
	tests := []struct {
		name    string
		caller  auth.Identity
		form    Form
		img     *Image
		wantErr error
	}{
		{"gif image", owner, chairForm(), pngImage("photo.gif"), ErrImageFormat},
		{"missing field", owner, Form{Name: "Chair", Quantity: "4"}, nil, ErrInvalidInput},
		{"non-integer quantity", owner, Form{Name: "Chair", Category: "Furniture", Quantity: "x"}, nil, ErrInvalidInput},
		{"quantity beyond 32 bits", owner, Form{Name: "Chair", Category: "Furniture", Quantity: "3000000000"}, nil, ErrInvalidInput},
		{"name too long", owner, Form{Name: strings.Repeat("n", 226), Category: "Furniture", Quantity: "4"}, nil, ErrInvalidInput},
		{"identity too long", auth.Identity{Subject: strings.Repeat("u", 226) + "@x.com"}, chairForm(), pngImage("a.png"), ErrInvalidInput},
		{"missing field beats bad image", owner, Form{Name: "Chair"}, pngImage("photo.gif"), ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), tt.caller, tt.form, tt.img)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			items, _ := f.repo.ListAll(context.Background())
			if len(items) != 0 {
				t.Errorf("%d items persisted after rejection", len(items))
			}
			entries, _ := os.ReadDir(f.dir)
			if len(entries) != 0 {
				t.Errorf("%d files stored after rejection", len(entries))
			}
		})
	}
}

func TestService_CreateSameInstantGetsDistinctKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var keys []string
	for i := 0; i < 3; i++ {
		id, err := f.svc.Create(ctx, owner, chairForm(), pngImage("a.png"))
		if err != nil {
			t.Fatalf("Create #%d: %v", i+1, err)
		}
		it, _ := f.repo.GetByID(ctx, id)
		keys = append(keys, *it.ImagePath)
	}

	want := []string{
		"u_20261019100000000001.png",
		"u_20261019100000000001_1.png",
		"u_20261019100000000001_2.png",
	}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", keys, want)
	}
	entries, _ := os.ReadDir(f.dir)
	if len(entries) != 3 {
		t.Errorf("stored files = %d, want 3", len(entries))
	}
}

func TestService_CreateRemovesImageWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	f.svc.repo = failingCreateRepo{f.repo}

	if _, err := f.svc.Create(context.Background(), owner, chairForm(), pngImage("a.png")); err == nil {
		t.Fatal("Create succeeded with failing repository")
	}
	entries, _ := os.ReadDir(f.dir)
	if len(entries) != 0 {
		t.Errorf("orphaned files left: %d", len(entries))
	}
}

func TestService_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.svc.Create(ctx, owner, chairForm(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Get(ctx, other, id); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get by other: err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Get(ctx, admin, id); err != nil {
		t.Errorf("Get by admin: %v", err)
	}
	if _, err := f.svc.Get(ctx, owner, id+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
	if err := f.svc.Update(ctx, other, id, chairForm()); !errors.Is(err, ErrForbidden) {
		t.Errorf("Update by other: err = %v, want ErrForbidden", err)
	}
	if err := f.svc.Delete(ctx, other, id); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete by other: err = %v, want ErrForbidden", err)
	}
	if _, err := f.repo.GetByID(ctx, id); err != nil {
		t.Errorf("item gone after forbidden delete: %v", err)
	}
}

func TestService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, who := range []auth.Identity{owner, other, owner} {
		if _, err := f.svc.Create(ctx, who, chairForm(), nil); err != nil {
			t.Fatal(err)
		}
	}

	mine, err := f.svc.List(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	all, err := f.svc.List(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}

	if len(mine) != 2 || len(all) != 3 {
		t.Fatalf("len(mine)=%d len(all)=%d, want 2 and 3", len(mine), len(all))
	}
	seen := map[int64]bool{}
	for _, it := range all {
		seen[it.ID] = true
	}
	for _, it := range mine {
		if it.OwnerID != owner.Subject {
			t.Errorf("listing leaked item of %q", it.OwnerID)
		}
		if !seen[it.ID] {
			t.Errorf("admin listing misses item %d", it.ID)
		}
	}
}

func TestService_UpdateKeepsOwnerAndImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.svc.Create(ctx, owner, chairForm(), pngImage("a.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	before, _ := f.repo.GetByID(ctx, id)

	if err := f.svc.Update(ctx, admin, id, Form{Name: "Table", Category: "Furniture", Quantity: "1"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	after, _ := f.repo.GetByID(ctx, id)
	if after.OwnerID != owner.Subject {
		t.Errorf("owner changed to %q", after.OwnerID)
	}
	if after.Name != "Table" || after.Quantity != 1 {
		t.Errorf("update not applied: %+v", after)
	}
	if *after.ImagePath != *before.ImagePath {
		t.Errorf("image changed: %q -> %q", *before.ImagePath, *after.ImagePath)
	}
}

func TestService_UpdateValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.svc.Create(ctx, owner, chairForm(), nil)
	if err != nil {
		t.Fatal(err)
	}

	err = f.svc.Update(ctx, owner, id, Form{Name: "Table"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	it, _ := f.repo.GetByID(ctx, id)
	if it.Name != "Chair" || it.Category != "Furniture" || it.Quantity != 4 {
		t.Errorf("invalid update modified item: %+v", it)
	}
}

func TestService_DeleteRemovesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.svc.Create(ctx, owner, chairForm(), pngImage("a.png"))
	if err != nil {
		t.Fatal(err)
	}
	it, _ := f.repo.GetByID(ctx, id)
	path := filepath.Join(f.dir, *it.ImagePath)

	if err := f.svc.Delete(ctx, owner, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("image still on disk: %v", err)
	}
	if _, err := f.repo.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("item still present: %v", err)
	}
	if pending, _ := f.repo.PendingImageDeletions(ctx, 10); len(pending) != 0 {
		t.Errorf("pending deletions = %v, want none", pending)
	}
}

func TestService_DeleteDefersFailedImageRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.svc.Create(ctx, owner, chairForm(), pngImage("a.png"))
	if err != nil {
		t.Fatal(err)
	}
	it, _ := f.repo.GetByID(ctx, id)

	f.store.failDelete = true
	if err := f.svc.Delete(ctx, owner, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	pending, _ := f.repo.PendingImageDeletions(ctx, 10)
	if len(pending) != 1 || pending[0] != *it.ImagePath {
		t.Fatalf("pending = %v, want [%s]", pending, *it.ImagePath)
	}
	if f.repo.pending[0].attempts != 1 || f.repo.pending[0].lastError == "" {
		t.Errorf("failure not recorded: %+v", f.repo.pending[0])
	}

	f.store.failDelete = false
	sweeper := NewSweeper(f.repo, f.store, time.Hour)
	removed, err := sweeper.Sweep(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Sweep = %d, %v; want 1", removed, err)
	}
	if _, err := os.Stat(filepath.Join(f.dir, *it.ImagePath)); !os.IsNotExist(err) {
		t.Errorf("image still on disk after sweep: %v", err)
	}
	if pending, _ := f.repo.PendingImageDeletions(ctx, 10); len(pending) != 0 {
		t.Errorf("pending after sweep = %v", pending)
	}
}

func TestSweeper_StuckKeysDoNotStarveNewerOnes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.failPrefix = "stuck"

	queue := func(key string) {
		t.Helper()
		it := &Item{OwnerID: "u@x.com", ImagePath: &key, Name: "Chair", Category: "Furniture", Quantity: 1}
		if err := f.repo.Create(ctx, it); err != nil {
			t.Fatal(err)
		}
		if err := f.repo.Delete(ctx, it.ID); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < sweepBatchSize; i++ {
		queue(fmt.Sprintf("stuck_%03d.png", i))
	}
	queue("fresh.png")

	sweeper := NewSweeper(f.repo, f.store, time.Hour)
	removed := 0
	for i := 0; i < 3; i++ {
		n, err := sweeper.Sweep(ctx)
		if err != nil {
			t.Fatalf("Sweep: %v", err)
		}
		removed += n
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	pending, _ := f.repo.PendingImageDeletions(ctx, sweepBatchSize+10)
	if len(pending) != sweepBatchSize {
		t.Fatalf("pending = %d keys, want %d", len(pending), sweepBatchSize)
	}
	for _, key := range pending {
		if key == "fresh.png" {
			t.Fatal("fresh.png still queued behind keys that keep failing")
		}
	}
}

func TestMemoryRepository_PendingOrdersByAttempts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for _, key := range []string{"a.png", "b.png", "c.png"} {
		it := &Item{OwnerID: "u@x.com", ImagePath: &key, Name: "Chair", Category: "Furniture", Quantity: 1}
		_ = repo.Create(ctx, it)
		_ = repo.Delete(ctx, it.ID)
	}
	_ = repo.RecordImageDeletionFailure(ctx, "a.png", errors.New("busy"))
	_ = repo.RecordImageDeletionFailure(ctx, "a.png", errors.New("busy"))
	_ = repo.RecordImageDeletionFailure(ctx, "b.png", errors.New("busy"))

	got, _ := repo.PendingImageDeletions(ctx, 2)
	if strings.Join(got, ",") != "c.png,b.png" {
		t.Errorf("pending = %v, want [c.png b.png]", got)
	}
}

func TestSweeper_ServeStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- NewSweeper(f.repo, f.store, time.Millisecond).Serve(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	key := "k.png"
	it := &Item{OwnerID: "u@x.com", ImagePath: &key, Name: "Chair", Category: "Furniture", Quantity: 1}
	if err := repo.Create(ctx, it); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.GetByID(ctx, it.ID)
	got.Name = "mutated"
	*got.ImagePath = "mutated"

	again, _ := repo.GetByID(ctx, it.ID)
	if again.Name != "Chair" || *again.ImagePath != "k.png" {
		t.Errorf("repository state mutated through returned item: %+v", again)
	}
	if err := repo.Update(ctx, &Item{ID: 999}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing: err = %v", err)
	}
	if err := repo.Delete(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing: err = %v", err)
	}
}
