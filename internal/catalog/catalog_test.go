package catalog_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/osprey/internal/catalog"
)

func TestVariantByName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *catalog.Variant
		wantErr error
	}{
		{"empty selects files", "", catalog.Files, nil},
		{"files", "files", catalog.Files, nil},
		{"transcription", "transcription", catalog.Transcription, nil},
		{"unknown", "audio", nil, catalog.ErrInvalidVariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := catalog.VariantByName(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("VariantByName(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VariantByName(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a4e-8b1d-4c3e-9a7f-1e2d3c4b5a69")

	tests := []struct {
		name    string
		variant *catalog.Variant
		input   string
		want    string
		wantErr bool
	}{
		{"int key", catalog.Files, "1001", "1001", false},
		{"int key leading zeros canonicalized", catalog.Files, "0042", "42", false},
		{"int key zero rejected", catalog.Files, "0", "", true},
		{"int key negative rejected", catalog.Files, "-5", "", true},
		{"int key rejects uuid", catalog.Files, id.String(), "", true},
		{"uuid key", catalog.Transcription, id.String(), id.String(), false},
		{"uuid key canonicalized", catalog.Transcription, strings.ToUpper(id.String()), id.String(), false},
		{"uuid key rejects int", catalog.Transcription, "17", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.variant.ParseKey(tt.input)
			if tt.wantErr {
				if !errors.Is(err, catalog.ErrInvalidKey) {
					t.Errorf("ParseKey(%q) error = %v, want ErrInvalidKey", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseWorkItem(t *testing.T) {
	id := uuid.MustParse("0b8e7d7a-3c1f-4e0a-b7d2-5d1a9c6e4f20")

	t.Run("integer selects files variant", func(t *testing.T) {
		item, err := catalog.ParseWorkItem("73")
		if err != nil {
			t.Fatalf("ParseWorkItem() error = %v", err)
		}
		folder, ok := item.(catalog.IntKeyedFolder)
		if !ok {
			t.Fatalf("ParseWorkItem() = %T, want IntKeyedFolder", item)
		}
		if folder.ID != 73 {
			t.Errorf("ID = %d, want 73", folder.ID)
		}
		if item.Variant() != catalog.Files {
			t.Errorf("Variant() = %s, want files", item.Variant().Name)
		}
		if item.Key() != int64(73) {
			t.Errorf("Key() = %v, want int64 73", item.Key())
		}
		if item.String() != "73" {
			t.Errorf("String() = %q, want 73", item.String())
		}
	})

	t.Run("uuid selects transcription variant", func(t *testing.T) {
		item, err := catalog.ParseWorkItem(id.String())
		if err != nil {
			t.Fatalf("ParseWorkItem() error = %v", err)
		}
		if _, ok := item.(catalog.UUIDKeyedFolder); !ok {
			t.Fatalf("ParseWorkItem() = %T, want UUIDKeyedFolder", item)
		}
		if item.Variant() != catalog.Transcription {
			t.Errorf("Variant() = %s, want transcription", item.Variant().Name)
		}
		if item.Key() != id {
			t.Errorf("Key() = %v, want %v", item.Key(), id)
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		for _, s := range []string{"", "abc", "12x", "-1"} {
			if _, err := catalog.ParseWorkItem(s); !errors.Is(err, catalog.ErrInvalidKey) {
				t.Errorf("ParseWorkItem(%q) error = %v, want ErrInvalidKey", s, err)
			}
		}
	})
}

func TestVariantItem(t *testing.T) {
	id := uuid.New()

	item, err := catalog.Transcription.Item(id.String())
	if err != nil {
		t.Fatalf("Item() error = %v", err)
	}
	if item.String() != id.String() {
		t.Errorf("String() = %q, want %q", item.String(), id.String())
	}

	if _, err := catalog.Transcription.Item("12"); !errors.Is(err, catalog.ErrInvalidKey) {
		t.Errorf("Transcription.Item(12) error = %v, want ErrInvalidKey", err)
	}
	if _, err := catalog.Files.Item(id.String()); !errors.Is(err, catalog.ErrInvalidKey) {
		t.Errorf("Files.Item(uuid) error = %v, want ErrInvalidKey", err)
	}
}

func TestFolderColumns(t *testing.T) {
	got := catalog.FolderColumns(catalog.Transcription, "tf")

	for _, want := range []string{
		"tf.folder_id::text",
		"tf.project_folder",
		"FROM transcription_files fc WHERE fc.folder_id = tf.folder_id",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FolderColumns() = %q, missing %q", got, want)
		}
	}
}
