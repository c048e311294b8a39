package s3

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/pithecene-io/dsszarr/store"
)

// -----------------------------------------------------------------------------
// Unit tests for the S3 store
// These use the mock client and don't require real S3/LocalStack/MinIO.
// -----------------------------------------------------------------------------

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil, Config{Bucket: "test"})
	if err == nil {
		t.Error("expected error for nil client")
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(NewMockClient(), Config{})
	if err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestNew_PrefixNormalization(t *testing.T) {
	tests := []struct {
		prefix   string
		expected string
	}{
		{"", ""},
		{"foo", "foo/"},
		{"foo/", "foo/"},
		{"foo/bar", "foo/bar/"},
	}

	for _, tt := range tests {
		s, err := New(NewMockClient(), Config{Bucket: "test", Prefix: tt.prefix})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if s.prefix != tt.expected {
			t.Errorf("prefix %q: expected %q, got %q", tt.prefix, tt.expected, s.prefix)
		}
	}
}

// -----------------------------------------------------------------------------
// Put / Replace
// -----------------------------------------------------------------------------

func TestStore_Put_ErrPathExists(t *testing.T) {
	ctx := t.Context()
	mock := NewMockClient()
	s, _ := New(mock, Config{Bucket: "test"})

	if err := s.Put(ctx, "out.zarr/.zgroup", bytes.NewReader([]byte("{}"))); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	err := s.Put(ctx, "out.zarr/.zgroup", bytes.NewReader([]byte("{}")))
	if !errors.Is(err, store.ErrPathExists) {
		t.Errorf("expected ErrPathExists, got: %v", err)
	}
	if mock.PutObjectCalls != 2 {
		t.Errorf("expected 2 PutObject calls, got %d", mock.PutObjectCalls)
	}
}

func TestStore_Replace_Overwrites(t *testing.T) {
	ctx := t.Context()
	mock := NewMockClient()
	s, _ := New(mock, Config{Bucket: "test", Prefix: "root"})

	for _, body := range []string{"v1", "v2"} {
		if err := s.Replace(ctx, ".zmetadata", bytes.NewReader([]byte(body))); err != nil {
			t.Fatalf("Replace(%s) failed: %v", body, err)
		}
	}

	data, ok := mock.Object("test", "root/.zmetadata")
	if !ok {
		t.Fatal("object not stored under prefixed key")
	}
	if string(data) != "v2" {
		t.Errorf("expected v2, got %q", data)
	}
}

func TestStore_Put_ErrInvalidPath(t *testing.T) {
	ctx := t.Context()
	s, _ := New(NewMockClient(), Config{Bucket: "test"})

	for _, p := range []string{"", "..", "../foo", "foo/../.."} {
		err := s.Put(ctx, p, bytes.NewReader([]byte("x")))
		if !errors.Is(err, store.ErrInvalidPath) {
			t.Errorf("path %q: expected ErrInvalidPath, got: %v", p, err)
		}
	}
}

// -----------------------------------------------------------------------------
// Get / Exists / Delete
// -----------------------------------------------------------------------------

func TestStore_Get(t *testing.T) {
	ctx := t.Context()
	mock := NewMockClient()
	mock.Seed("test", "hms/Y001.dss", []byte("payload"))
	s, _ := New(mock, Config{Bucket: "test"})

	rc, err := s.Get(ctx, "hms/Y001.dss")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, _ := io.ReadAll(rc)
	if string(data) != "payload" {
		t.Errorf("unexpected content %q", data)
	}

	_, err = s.Get(ctx, "hms/missing.dss")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestStore_Get_TransportError(t *testing.T) {
	mock := NewMockClient()
	mock.GetObjectErr = errors.New("connection reset")
	s, _ := New(mock, Config{Bucket: "test"})

	_, err := s.Get(t.Context(), "any.dss")
	if err == nil || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected wrapped transport error, got: %v", err)
	}
}

func TestStore_Exists(t *testing.T) {
	ctx := t.Context()
	mock := NewMockClient()
	mock.Seed("test", "a.dss", []byte("x"))
	s, _ := New(mock, Config{Bucket: "test"})

	ok, err := s.Exists(ctx, "a.dss")
	if err != nil || !ok {
		t.Errorf("Exists(a.dss) = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.Exists(ctx, "b.dss")
	if err != nil || ok {
		t.Errorf("Exists(b.dss) = %v, %v; want false, nil", ok, err)
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	ctx := t.Context()
	mock := NewMockClient()
	mock.Seed("test", "a.dss", []byte("x"))
	s, _ := New(mock, Config{Bucket: "test"})

	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "a.dss"); err != nil {
			t.Fatalf("Delete #%d failed: %v", i+1, err)
		}
	}
	if _, ok := mock.Object("test", "a.dss"); ok {
		t.Error("object still present after Delete")
	}
}

// -----------------------------------------------------------------------------
// List
// -----------------------------------------------------------------------------

func TestStore_List_Paginates(t *testing.T) {
	ctx := t.Context()
	mock := NewMockClient()
	mock.PageSize = 2
	for _, k := range []string{"p/e.dss", "p/a.dss", "p/c.dss", "p/b.dss", "p/d.dss", "q/z.dss"} {
		mock.Seed("test", k, []byte(k))
	}
	s, _ := New(mock, Config{Bucket: "test"})

	got, err := s.List(ctx, "p/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"p/a.dss", "p/b.dss", "p/c.dss", "p/d.dss", "p/e.dss"}
	if !slices.Equal(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
	if mock.ListCalls != 3 {
		t.Errorf("expected 3 list pages, got %d", mock.ListCalls)
	}
}

func TestStore_List_StripsStorePrefix(t *testing.T) {
	mock := NewMockClient()
	mock.Seed("test", "root/x/.zarray", []byte("{}"))
	s, _ := New(mock, Config{Bucket: "test", Prefix: "root"})

	got, err := s.List(t.Context(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"x/.zarray"}) {
		t.Errorf("List = %v, want [x/.zarray]", got)
	}
}

func TestFactory_BindsBucket(t *testing.T) {
	mock := NewMockClient()
	st, err := Factory(mock)(t.Context(), "wy-ble")
	if err != nil {
		t.Fatal(err)
	}
	if got := st.(*Store).Bucket(); got != "wy-ble" {
		t.Errorf("Bucket() = %q, want wy-ble", got)
	}
}
