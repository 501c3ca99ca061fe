package webhook

import (
	"testing"
	"time"
)

func TestCommentDeduperMarksFirstSeenAsNew(t *testing.T) {
	d := NewCommentDeduper(time.Hour)
	if !d.MarkIfNew(1) {
		t.Error("expected first occurrence of id 1 to be new")
	}
}

func TestCommentDeduperSuppressesRepeat(t *testing.T) {
	d := NewCommentDeduper(time.Hour)
	d.MarkIfNew(1)
	if d.MarkIfNew(1) {
		t.Error("expected repeated id 1 within TTL to be suppressed")
	}
}

func TestCommentDeduperExpiresAfterTTL(t *testing.T) {
	d := NewCommentDeduper(10 * time.Millisecond)
	d.MarkIfNew(1)
	time.Sleep(20 * time.Millisecond)
	if !d.MarkIfNew(1) {
		t.Error("expected id 1 to be treated as new again after TTL expiry")
	}
}
