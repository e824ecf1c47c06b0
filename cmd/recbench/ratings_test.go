// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/recbench/internal/store"
)

func writeRatingsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ratings.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write ratings file: %v", err)
	}
	return path
}

func TestLoadRatingsCSV(t *testing.T) {
	path := writeRatingsFile(t, "userId,itemId,rating\n1,10,4.5\n1,20,3\n2,10,2.0\n")

	ms := store.NewMemoryStore()
	n, err := loadRatingsCSV(ms, path)
	if err != nil {
		t.Fatalf("loadRatingsCSV() error = %v", err)
	}
	if n != 3 {
		t.Errorf("loaded %d ratings, want 3", n)
	}

	ratings, err := ms.ActiveRatings(context.Background(), store.KindUser, 1)
	if err != nil {
		t.Fatalf("ActiveRatings() error = %v", err)
	}
	if ratings[10] != 4.5 || ratings[20] != 3 {
		t.Errorf("user 1 ratings = %v, want map[10:4.5 20:3]", ratings)
	}
}

func TestLoadRatingsCSVWithoutHeader(t *testing.T) {
	path := writeRatingsFile(t, "1,10,5\n2,10,1\n")

	ms := store.NewMemoryStore()
	n, err := loadRatingsCSV(ms, path)
	if err != nil {
		t.Fatalf("loadRatingsCSV() error = %v", err)
	}
	if n != 2 {
		t.Errorf("loaded %d ratings, want 2", n)
	}
}

func TestLoadRatingsCSVRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "userId,itemId,rating\n"},
		{"bad rating value", "1,10,great\n"},
		{"bad item id mid-file", "1,10,5\n1,x,3\n"},
		{"rating out of range", "1,10,9.5\n"},
		{"wrong field count", "1,10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRatingsFile(t, tt.content)
			if _, err := loadRatingsCSV(store.NewMemoryStore(), path); err == nil {
				t.Error("loadRatingsCSV() = nil, want error")
			}
		})
	}
}

func TestLoadRatingsCSVMissingFile(t *testing.T) {
	if _, err := loadRatingsCSV(store.NewMemoryStore(), filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("loadRatingsCSV() = nil, want error")
	}
}
