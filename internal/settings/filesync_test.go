package settings

import (
	"io"
	"log/slog"
	"testing"
)

func newTestFileSync(t *testing.T, initial any) (*FileSync, *Validator, *Store) {
	t.Helper()
	v, store := newTestValidator(t)
	return NewFileSync(v, initial, slog.New(slog.NewTextHandler(io.Discard, nil))), v, store
}

func TestFileSyncKeepsCloudValueOnUnchangedReload(t *testing.T) {
	fileSync, v, store := newTestFileSync(t, int64(1000))

	if got := v.Apply(KeyLoopDelayMS, Int(250)); got != StatusSuccess {
		t.Fatalf("Apply = %v", got)
	}

	if _, applied := fileSync.Reload(int64(1000)); applied {
		t.Error("unchanged file value was re-applied")
	}
	if got := store.DelayMS(); got != 250 {
		t.Errorf("DelayMS = %d, want 250", got)
	}
}

func TestFileSyncKeepsFlagOverride(t *testing.T) {
	// The flag set 2000 at startup while the file says 1000.
	fileSync, v, store := newTestFileSync(t, int64(1000))
	v.ApplyFrom(SourceConfig, KeyLoopDelayMS, Int(2000))

	fileSync.Reload(int64(1000))
	if got := store.DelayMS(); got != 2000 {
		t.Errorf("DelayMS = %d, want 2000", got)
	}
}

func TestFileSyncSequence(t *testing.T) {
	fileSync, v, store := newTestFileSync(t, int64(1000))

	steps := []struct {
		name        string
		cloud       int64
		raw         any
		wantApplied bool
		wantStatus  Status
		wantDelay   int32
	}{
		{name: "file edited", raw: int64(500), wantApplied: true, wantStatus: StatusSuccess, wantDelay: 500},
		{name: "cloud then unrelated edit", cloud: 300, raw: int64(500), wantDelay: 300},
		{name: "key removed", raw: nil, wantDelay: 300},
		{name: "key restored", raw: int64(500), wantApplied: true, wantStatus: StatusSuccess, wantDelay: 500},
		{name: "out of range", raw: int64(50), wantApplied: true, wantStatus: StatusOutOfRange, wantDelay: 500},
		{name: "same bad value", raw: int64(50), wantDelay: 500},
		{name: "wrong type", raw: "fast", wantApplied: true, wantStatus: StatusFormatInvalid, wantDelay: 500},
		{name: "unconvertible", raw: []any{1}, wantApplied: true, wantStatus: StatusFormatInvalid, wantDelay: 500},
		{name: "unconvertible again", raw: []any{1}, wantDelay: 500},
	}

	for _, st := range steps {
		if st.cloud != 0 {
			v.Apply(KeyLoopDelayMS, Int(st.cloud))
		}
		status, applied := fileSync.Reload(st.raw)
		if applied != st.wantApplied {
			t.Errorf("%s: applied = %v, want %v", st.name, applied, st.wantApplied)
		}
		if applied && status != st.wantStatus {
			t.Errorf("%s: status = %v, want %v", st.name, status, st.wantStatus)
		}
		if got := store.DelayMS(); got != st.wantDelay {
			t.Errorf("%s: DelayMS = %d, want %d", st.name, got, st.wantDelay)
		}
	}
}

func TestFileSyncAbsentAtStartup(t *testing.T) {
	fileSync, _, store := newTestFileSync(t, nil)

	if _, applied := fileSync.Reload(nil); applied {
		t.Error("absent value applied")
	}
	if _, applied := fileSync.Reload(int64(700)); !applied {
		t.Error("newly added value not applied")
	}
	if got := store.DelayMS(); got != 700 {
		t.Errorf("DelayMS = %d, want 700", got)
	}
}
