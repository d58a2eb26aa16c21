package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisLocationCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisLocationCache(mr.Addr(), "", 0, time.Hour)
	defer c.Close()
	ctx := context.Background()

	if _, ok, err := c.GetLocations(ctx, "leeds"); ok || err != nil {
		t.Fatalf("GetLocations on empty cache = %v, %v; want miss", ok, err)
	}

	want := []string{"REGION^787", "OUTCODE^LS1"}
	if err := c.SetLocations(ctx, "leeds", want); err != nil {
		t.Fatalf("SetLocations: %v", err)
	}
	got, ok, err := c.GetLocations(ctx, "leeds")
	if err != nil || !ok || !reflect.DeepEqual(got, want) {
		t.Errorf("GetLocations = %v, %v, %v; want %v", got, ok, err, want)
	}

	if ttl := mr.TTL(locationKeyPrefix + "leeds"); ttl != time.Hour {
		t.Errorf("TTL = %v; want 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, _ := c.GetLocations(ctx, "leeds"); ok {
		t.Error("entry should expire after its TTL")
	}
}

func TestRedisLocationCacheCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisLocationCache(mr.Addr(), "", 0, time.Hour)
	defer c.Close()

	mr.Set(locationKeyPrefix+"hull", "not json")
	if _, _, err := c.GetLocations(context.Background(), "hull"); err == nil {
		t.Error("corrupt entry should surface a decode error")
	}
}
