package proxy

import (
	"context"
	"fmt"

	"github.com/boxlab/boxctl/internal/runtime"
)

// Execer probes what is available inside the instance.
type Execer interface {
	Exec(ctx context.Context, internalName string, command []string) (*runtime.ExecResult, error)
}

// pythonRelay is a stdin/stdout <-> TCP socket relay. Preferred when the
// instance image ships python3.
const pythonRelay = `import socket,sys,threading
s=socket.create_connection(("127.0.0.1",%d))
def up():
    r=sys.stdin.buffer
    while True:
        d=r.read1(65536)
        if not d: break
        s.sendall(d)
    s.shutdown(socket.SHUT_WR)
threading.Thread(target=up,daemon=True).start()
w=sys.stdout.buffer
while True:
    d=s.recv(65536)
    if not d: break
    w.write(d); w.flush()`

// RelayCommand selects the in-instance relay program by probing the
// instance: a python3 socket relay when available, else a shell-builtin
// /dev/tcp redirection one-liner.
func RelayCommand(ctx context.Context, rt Execer, internalName string, targetPort int) ([]string, error) {
	res, err := rt.Exec(ctx, internalName, []string{"/bin/sh", "-c", "command -v python3"})
	if err != nil {
		return nil, fmt.Errorf("probing relay support: %w", err)
	}
	if res.ExitCode == 0 {
		return []string{"python3", "-u", "-c", fmt.Sprintf(pythonRelay, targetPort)}, nil
	}

	shell := fmt.Sprintf(`exec 3<>/dev/tcp/127.0.0.1/%d; (cat <&3; kill $$) & cat >&3`, targetPort)
	return []string{"/bin/sh", "-c", shell}, nil
}
