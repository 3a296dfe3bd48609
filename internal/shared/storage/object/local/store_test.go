package local

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lexease-backend/internal/shared/storage/object"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	obj, err := store.Save(ctx, "guest:abc", "lease agreement.txt", strings.NewReader("Party A shall pay Party B."))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if obj.Size != int64(len("Party A shall pay Party B.")) {
		t.Fatalf("unexpected size %d", obj.Size)
	}
	if !strings.HasPrefix(obj.MimeType, "text/plain") {
		t.Fatalf("expected text/plain, got %q", obj.MimeType)
	}
	if !strings.HasSuffix(obj.Key, "_lease agreement.txt") {
		t.Fatalf("unexpected key %q", obj.Key)
	}

	data, err := object.ReadAll(ctx, store, obj.Key)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "Party A shall pay Party B." {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := store.Save(context.Background(), "u", "../x.txt", strings.NewReader("x")); err == nil {
		t.Fatalf("expected invalid file name")
	}
}

func TestListAndDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	for _, key := range []string{"legal_drafts/English/Simple_Affidavit.txt", "legal_drafts/Hindi/Simple_Affidavit.txt", "other/x.txt"} {
		if _, err := store.Put(ctx, key, "text/plain", strings.NewReader("body")); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	keys, err := store.List(ctx, "legal_drafts")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"legal_drafts/English/Simple_Affidavit.txt", "legal_drafts/Hindi/Simple_Affidavit.txt"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", keys, want)
	}

	if err := store.Delete(ctx, want[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, want[0]); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, want[0]); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}

	missing, err := store.List(ctx, "nothing-here")
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected empty listing, got %v %v", missing, err)
	}
}
