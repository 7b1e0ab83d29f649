package powerd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/boxlab/boxctl/internal/apperr"
	"github.com/boxlab/boxctl/internal/instance"
)

type stubLister struct {
	mu        sync.Mutex
	instances []instance.Instance
	err       error
}

func (s *stubLister) List(context.Context) ([]instance.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instances, s.err
}

func (s *stubLister) set(instances []instance.Instance, err error) {
	s.mu.Lock()
	s.instances = instances
	s.err = err
	s.mu.Unlock()
}

type fakeHolder struct {
	mu     sync.Mutex
	active bool
}

func (f *fakeHolder) Acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = true
	return nil
}

func (f *fakeHolder) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
}

func (f *fakeHolder) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func runningAwake() []instance.Instance {
	return []instance.Instance{
		{PublicName: "dev", Status: instance.StatusRunning, KeepAwake: true},
	}
}

// startDaemon runs d until the test ends and returns the cancel func.
func startDaemon(t *testing.T, d *Daemon) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

// waitFor polls cond for up to a second.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func testDaemon(t *testing.T, lister Lister, holder Holder) *Daemon {
	t.Helper()
	return New(lister, zerolog.Nop(), Options{
		Interval: 10 * time.Millisecond,
		PIDPath:  filepath.Join(t.TempDir(), "powerd.pid"),
		Holder:   holder,
	})
}

func TestHoldFollowsInstanceState(t *testing.T) {
	lister := &stubLister{instances: runningAwake()}
	holder := &fakeHolder{}
	startDaemon(t, testDaemon(t, lister, holder))

	waitFor(t, holder.Active, "hold was never acquired")

	lister.set([]instance.Instance{
		{PublicName: "dev", Status: instance.StatusStopped, KeepAwake: true},
	}, nil)
	waitFor(t, func() bool { return !holder.Active() }, "hold was not released after the instance stopped")
}

func TestKeepAwakeFalseNeverHolds(t *testing.T) {
	lister := &stubLister{instances: []instance.Instance{
		{PublicName: "dev", Status: instance.StatusRunning, KeepAwake: false},
	}}
	holder := &fakeHolder{}
	startDaemon(t, testDaemon(t, lister, holder))

	time.Sleep(50 * time.Millisecond)
	if holder.Active() {
		t.Error("hold acquired for an instance that opted out")
	}
}

func TestListErrorReleasesHold(t *testing.T) {
	lister := &stubLister{instances: runningAwake()}
	holder := &fakeHolder{}
	startDaemon(t, testDaemon(t, lister, holder))

	waitFor(t, holder.Active, "hold was never acquired")

	lister.set(nil, errors.New("runtime unreachable"))
	waitFor(t, func() bool { return !holder.Active() }, "hold survived a listing failure")
}

func TestRunRemovesClaimOnShutdown(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "powerd.pid")
	d := New(&stubLister{}, zerolog.Nop(), Options{
		Interval: 10 * time.Millisecond,
		PIDPath:  pidPath,
		Holder:   &fakeHolder{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return ReadPID(pidPath) == os.Getpid() }, "claim file never appeared")
	cancel()
	<-done

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("claim file left behind after shutdown")
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "powerd.pid")
	if err := os.WriteFile(pidPath, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// pid 1 is always alive, so the claim must be refused.
	d := New(&stubLister{}, zerolog.Nop(), Options{
		Interval: 10 * time.Millisecond,
		PIDPath:  pidPath,
		Holder:   &fakeHolder{},
	})
	err := d.Run(context.Background())
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("Run = %v, want a validation error naming the live owner", err)
	}
}
