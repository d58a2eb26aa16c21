package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

func openTestSQLite(t *testing.T) *SQLStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "nested", "properties.db")
	s, err := Open(context.Background(), "sqlite3", dsn, utils.Discard())
	if err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED") || strings.Contains(err.Error(), "cgo") {
			t.Skipf("sqlite3 unavailable: %v", err)
		}
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(id string) *models.ListingRecord {
	title := "Listing " + id
	return &models.ListingRecord{ID: id, Title: &title}
}

func TestSQLiteSaveThenDraw(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	images := [][]byte{[]byte("one"), nil, []byte("three")}
	if err := s.Save(ctx, rec("100"), images, []byte("plot")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	drawn, err := s.DrawUnused(ctx, 1)
	if err != nil {
		t.Fatalf("DrawUnused: %v", err)
	}
	if len(drawn) != 1 {
		t.Fatalf("drew %d; want 1", len(drawn))
	}
	got := drawn[0]
	if got.Record.ID != "100" || *got.Record.Title != "Listing 100" || !got.Used {
		t.Errorf("drawn = %+v", got.Record)
	}
	if len(got.Images) != 2 || string(got.Images[0]) != "one" || string(got.Images[1]) != "three" {
		t.Errorf("images = %q; want [one three]", got.Images)
	}
	if string(got.Plot) != "plot" {
		t.Errorf("plot = %q; want plot", got.Plot)
	}

	again, err := s.DrawUnused(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("second draw returned %d listings; want none until reset", len(again))
	}
}

func TestSQLiteDrawSubsetAndNoRepeat(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, rec(fmt.Sprint(i)), nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	first, err := s.DrawUnused(ctx, 2)
	if err != nil || len(first) != 2 {
		t.Fatalf("DrawUnused(2) = %d, %v; want 2", len(first), err)
	}
	rest, err := s.DrawUnused(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 {
		t.Fatalf("DrawUnused(10) = %d; want only the 1 remaining", len(rest))
	}
	for _, f := range first {
		if f.Record.ID == rest[0].Record.ID {
			t.Errorf("listing %s drawn twice", f.Record.ID)
		}
	}

	if err := s.ResetUsed(ctx); err != nil {
		t.Fatal(err)
	}
	all, err := s.DrawUnused(ctx, 10)
	if err != nil || len(all) != 3 {
		t.Errorf("after reset drew %d, %v; want 3", len(all), err)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3", n, err)
	}
}

func TestSQLiteSaveReplaces(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	if err := s.Save(ctx, rec("7"), [][]byte{[]byte("a"), []byte("b")}, []byte("p")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DrawUnused(ctx, 1); err != nil {
		t.Fatal(err)
	}

	updated := rec("7")
	price := "£100,000"
	updated.Price = &price
	if err := s.Save(ctx, updated, [][]byte{[]byte("c")}, nil); err != nil {
		t.Fatal(err)
	}

	images, err := s.ListingImages(ctx, "7")
	if err != nil || len(images) != 1 || string(images[0]) != "c" {
		t.Errorf("ListingImages = %q, %v; want [c]", images, err)
	}
	plot, err := s.ListingPlot(ctx, "7")
	if err != nil || plot != nil {
		t.Errorf("ListingPlot = %q, %v; want nil", plot, err)
	}

	// Re-saving puts the listing back in the unused pool.
	drawn, err := s.DrawUnused(ctx, 1)
	if err != nil || len(drawn) != 1 || *drawn[0].Record.Price != price {
		t.Errorf("redraw = %v, %v; want updated listing", drawn, err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d; want 1", n)
	}
}

func TestSQLiteConcurrentDrawsDoNotOverlap(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if err := s.Save(ctx, rec(fmt.Sprint(i)), nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drawn, err := s.DrawUnused(ctx, 4)
			if err != nil {
				t.Errorf("DrawUnused: %v", err)
				return
			}
			mu.Lock()
			for _, d := range drawn {
				seen[d.Record.ID]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 20 {
		t.Errorf("drew %d distinct listings; want 20", len(seen))
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("listing %s drawn %d times", id, n)
		}
	}
}

func TestSaveRequiresID(t *testing.T) {
	s := openTestSQLite(t)
	if err := s.Save(context.Background(), &models.ListingRecord{}, nil, nil); err == nil {
		t.Error("Save without id should fail")
	}
}

func TestSQLiteRebind(t *testing.T) {
	got := sqliteRebind(`SELECT * FROM t WHERE a = $1 AND b = $2 OR c = $1`)
	want := `SELECT * FROM t WHERE a = ?1 AND b = ?2 OR c = ?1`
	if got != want {
		t.Errorf("sqliteRebind = %q; want %q", got, want)
	}
}
