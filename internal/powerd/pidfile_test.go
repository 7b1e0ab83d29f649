package powerd

import (
	"os"
	"path/filepath"
	"testing"
)

func testPIDPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "powerd.pid")
}

func TestClaimFresh(t *testing.T) {
	path := testPIDPath(t)
	claimed, owner, err := Claim(path, os.Getpid())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed || owner != os.Getpid() {
		t.Errorf("claimed = %v, owner = %d", claimed, owner)
	}
	if got := ReadPID(path); got != os.Getpid() {
		t.Errorf("ReadPID = %d, want %d", got, os.Getpid())
	}
}

func TestClaimAgainstLiveOwnerFails(t *testing.T) {
	path := testPIDPath(t)
	// Claim as ourselves; we are certainly alive.
	if claimed, _, err := Claim(path, os.Getpid()); err != nil || !claimed {
		t.Fatalf("first claim: %v, %v", claimed, err)
	}
	claimed, owner, err := Claim(path, 99999)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("second claimant won against a live owner")
	}
	if owner != os.Getpid() {
		t.Errorf("owner = %d, want %d", owner, os.Getpid())
	}
}

func TestClaimTakesOverStalePID(t *testing.T) {
	path := testPIDPath(t)
	// An absurdly high pid that no process holds.
	if err := os.WriteFile(path, []byte("4194000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	claimed, owner, err := Claim(path, os.Getpid())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed || owner != os.Getpid() {
		t.Errorf("stale takeover failed: claimed=%v owner=%d", claimed, owner)
	}
}

func TestClaimTakesOverMalformedFile(t *testing.T) {
	path := testPIDPath(t)
	if err := os.WriteFile(path, []byte("not a pid"), 0o644); err != nil {
		t.Fatal(err)
	}
	claimed, _, err := Claim(path, os.Getpid())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed {
		t.Error("malformed claim file blocked the takeover")
	}
}

func TestReleaseOnlyRemovesOwnClaim(t *testing.T) {
	path := testPIDPath(t)
	if _, _, err := Claim(path, os.Getpid()); err != nil {
		t.Fatal(err)
	}

	Release(path, os.Getpid()+1)
	if _, err := os.Stat(path); err != nil {
		t.Fatal("Release removed a claim it does not own")
	}

	Release(path, os.Getpid())
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Release left our own claim behind")
	}
}

func TestAlive(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Error("Alive(self) = false")
	}
	if Alive(0) || Alive(-1) {
		t.Error("Alive accepted a non-positive pid")
	}
	if Alive(4194000) {
		t.Error("Alive(4194000) = true; that pid should not exist")
	}
}

func TestReadPIDAbsentFile(t *testing.T) {
	if got := ReadPID(filepath.Join(t.TempDir(), "nope.pid")); got != 0 {
		t.Errorf("ReadPID = %d, want 0", got)
	}
}
