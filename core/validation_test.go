package core

import (
	"errors"
	"testing"
)

func TestValidateArticle(t *testing.T) {
	tests := []struct {
		name    string
		article *Article
		wantErr error
	}{
		{
			name: "valid article",
			article: &Article{
				CanonicalURL: "https://example.com/article/a",
				Body:         "Some body text",
			},
			wantErr: nil,
		},
		{
			name:    "nil article",
			article: nil,
			wantErr: ErrInvalidArticle,
		},
		{
			name: "empty body",
			article: &Article{
				CanonicalURL: "https://example.com/article/a",
			},
			wantErr: ErrEmptyBody,
		},
		{
			name: "whitespace body",
			article: &Article{
				CanonicalURL: "https://example.com/article/a",
				Body:         " \n\t ",
			},
			wantErr: ErrEmptyBody,
		},
		{
			name: "missing canonical URL",
			article: &Article{
				Body: "text",
			},
			wantErr: ErrMissingCanonicalURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArticle(tt.article)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateArticle() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateArticle() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidArticle) {
				t.Errorf("ValidateArticle() error should wrap ErrInvalidArticle")
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	url := "https://example.com/article/a"

	valid := &Chunk{ID: ChunkID(url, 3), SourceURL: url, Seq: 3, Text: "x"}
	if err := ValidateChunk(valid); err != nil {
		t.Errorf("ValidateChunk() unexpected error = %v", err)
	}

	wrongSeq := &Chunk{ID: ChunkID(url, 3), SourceURL: url, Seq: 4, Text: "x"}
	if err := ValidateChunk(wrongSeq); !errors.Is(err, ErrChunkIDMismatch) {
		t.Errorf("ValidateChunk() error = %v, want ErrChunkIDMismatch", err)
	}

	empty := &Chunk{ID: ChunkID(url, 0), SourceURL: url}
	if err := ValidateChunk(empty); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("ValidateChunk() error = %v, want ErrEmptyBody", err)
	}

	if err := ValidateChunk(nil); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("ValidateChunk(nil) error = %v, want ErrInvalidChunk", err)
	}
}

func TestValidateLedgerEntry(t *testing.T) {
	if err := ValidateLedgerEntry(&LedgerEntry{URL: "https://example.com/a", Chunks: 2}); err != nil {
		t.Errorf("ValidateLedgerEntry() unexpected error = %v", err)
	}
	if err := ValidateLedgerEntry(&LedgerEntry{Chunks: 2}); !errors.Is(err, ErrMissingCanonicalURL) {
		t.Errorf("ValidateLedgerEntry() error = %v, want ErrMissingCanonicalURL", err)
	}
	if err := ValidateLedgerEntry(&LedgerEntry{URL: "https://example.com/a"}); !errors.Is(err, ErrInvalidLedgerEntry) {
		t.Errorf("ValidateLedgerEntry() error = %v, want ErrInvalidLedgerEntry", err)
	}
	if err := ValidateLedgerEntry(nil); !errors.Is(err, ErrInvalidLedgerEntry) {
		t.Errorf("ValidateLedgerEntry(nil) error = %v, want ErrInvalidLedgerEntry", err)
	}
}
