package production

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/statesvc/internal/core"
)

func TestConnectRedis_BadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), RedisConfig{URL: "://nope", ConnectTimeout: time.Second})
	if !errors.Is(err, ErrFailedToParseRedisURL) {
		t.Errorf("ConnectRedis error = %v, want ErrFailedToParseRedisURL", err)
	}
}

func TestConnectRedis_NotReady(t *testing.T) {
	_, err := ConnectRedis(context.Background(), RedisConfig{
		URL:            "redis://127.0.0.1:1/0",
		ConnectTimeout: 500 * time.Millisecond,
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
	})
	if !errors.Is(err, ErrRedisNotReady) {
		t.Errorf("ConnectRedis error = %v, want ErrRedisNotReady", err)
	}
}

// TestRedisStore_Live runs against a real server when STATESVC_TEST_REDIS_URL
// is set.
func TestRedisStore_Live(t *testing.T) {
	url := os.Getenv("STATESVC_TEST_REDIS_URL")
	if url == "" {
		t.Skip("STATESVC_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	prefix := "statesvc-test:" + uuid.NewString() + ":"
	store, err := ConnectRedis(ctx, RedisConfig{
		URL:            url,
		Channel:        prefix + "transitions",
		KeyPrefix:      prefix,
		ConnectTimeout: 5 * time.Second,
		RetryAttempts:  1,
	})
	if err != nil {
		t.Fatalf("ConnectRedis: %v", err)
	}
	defer store.Close()

	sub := store.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	rec := core.TransitionRecord{MachineID: "m", Sequence: 1, From: "a", To: "b", Changed: true}
	if err := store.Publish(ctx, rec); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		got, err := DecodeRecord(msg)
		if err != nil || got.To != "b" {
			t.Errorf("DecodeRecord = %+v, %v", got, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}

	if _, err := store.Load(ctx, "m"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load error = %v, want ErrSnapshotNotFound", err)
	}
	snap := testSnapshot()
	snap.MachineID = "m"
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "m")
	if err != nil || got.State.ID != "s1" {
		t.Errorf("Load = %+v, %v", got, err)
	}
	_ = store.client.Del(ctx, prefix+"m").Err()
}
