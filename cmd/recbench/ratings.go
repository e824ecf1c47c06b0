// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tomtom215/recbench/internal/store"
)

// loadRatingsCSV seeds the memory store from a userId,itemId,rating CSV.
// A header row is detected by a non-numeric first field and skipped.
// Duplicate (user, item) rows keep the last rating seen.
func loadRatingsCSV(ms *store.MemoryStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open ratings file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.ReuseRecord = true

	count := 0
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read ratings file %s: %w", path, err)
		}
		line++

		userID, err := strconv.Atoi(record[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return count, fmt.Errorf("ratings file %s line %d: bad user id %q", path, line, record[0])
		}
		itemID, err := strconv.Atoi(record[1])
		if err != nil {
			return count, fmt.Errorf("ratings file %s line %d: bad item id %q", path, line, record[1])
		}
		value, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return count, fmt.Errorf("ratings file %s line %d: bad rating %q", path, line, record[2])
		}

		if err := ms.AddRating(userID, itemID, value); err != nil {
			return count, fmt.Errorf("ratings file %s line %d: %w", path, line, err)
		}
		count++
	}

	if count == 0 {
		return 0, fmt.Errorf("ratings file %s holds no ratings", path)
	}
	return count, nil
}
