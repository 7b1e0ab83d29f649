package runtime

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// Attach runs a command inside an instance with the caller's terminal
// attached. The runtime process is started under a PTY so the in-instance
// shell always sees a terminal, with window size forwarded from the host.
func (c *Client) Attach(internalName string, command []string) error {
	if len(command) == 0 {
		command = []string{"/bin/sh", "-l"}
	}
	args := append([]string{"exec", "-i", "-t", internalName}, command...)
	cmd := exec.Command(c.bin, args...)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("starting attached session: %w", err)
	}
	defer ptmx.Close()

	// Forward terminal resizes to the PTY.
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			pty.InheritSize(os.Stdin, ptmx)
		}
	}()
	winch <- syscall.SIGWINCH // set the initial size

	// Raw mode so control sequences pass through untouched.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("setting raw mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), oldState)
	}

	go io.Copy(ptmx, os.Stdin)
	io.Copy(os.Stdout, ptmx)

	return cmd.Wait()
}
