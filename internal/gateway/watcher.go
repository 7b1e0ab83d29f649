package gateway

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// watcherPIDPath guards against arming a second bootstrap watcher in the
// same instance.
const watcherPIDPath = "/tmp/box-gateway-watch.pid"

// armWatcher backgrounds a bounded polling loop inside the instance that
// waits for the service binary to appear and then starts it, including the
// token-bootstrap recovery, before exiting. Arming is idempotent: a live
// watcher PID file short-circuits.
func (o *Orchestrator) armWatcher(ctx context.Context, internalName string) Result {
	check := fmt.Sprintf("test -f %s && kill -0 $(cat %s) 2>/dev/null", watcherPIDPath, watcherPIDPath)
	res, err := o.rt.Exec(ctx, internalName, []string{"/bin/sh", "-c", check})
	if err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("checking bootstrap watcher: %v", err)}
	}
	if res.ExitCode == 0 {
		return Result{
			Status:  StatusPending,
			Message: "gateway not installed yet; bootstrap watcher already armed",
		}
	}

	arm := fmt.Sprintf("nohup /bin/sh -c '%s' >/dev/null 2>&1 & echo $! >%s",
		strings.ReplaceAll(o.watcherScript(), "'", `'\''`), watcherPIDPath)
	res, err = o.rt.Exec(ctx, internalName, []string{"/bin/sh", "-c", arm})
	if err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("arming bootstrap watcher: %v", err)}
	}
	if res.ExitCode != 0 {
		return Result{
			Status:  StatusError,
			Message: fmt.Sprintf("arming bootstrap watcher exited with %d", res.ExitCode),
			Detail:  strings.TrimSpace(res.Output),
		}
	}
	o.log.Info().Str("instance", internalName).Msg("bootstrap watcher armed")
	return Result{
		Status:  StatusPending,
		Message: fmt.Sprintf("gateway not installed yet; watcher will start it when %s appears", o.cfg.Binary),
	}
}

// watcherScript builds the in-instance polling loop. It mirrors the host
// side of Ensure: wait for the binary, start it, and on the token-missing
// log signature provision a token and restart with it.
func (o *Orchestrator) watcherScript() string {
	bin := o.cfg.Binary
	logp := o.cfg.LogPath
	tok := o.cfg.TokenPath
	base := path.Base(bin)

	return fmt.Sprintf(`i=0
while [ $i -lt %d ]; do
  i=$((i+1))
  if [ -x %[2]s ]; then
    pgrep -x %[3]s >/dev/null 2>&1 || nohup %[2]s >>%[4]s 2>&1 &
    sleep 2
    if curl -fsS -m 2 http://127.0.0.1:%[5]d/healthz >/dev/null 2>&1; then
      break
    fi
    if tail -n 40 %[4]s 2>/dev/null | grep -q "%[6]s"; then
      if [ ! -s %[7]s ]; then
        umask 077
        mkdir -p $(dirname %[7]s)
        head -c 16 /dev/urandom | od -An -tx1 | tr -d " \n" >%[7]s
        chmod 600 %[7]s
      fi
      pkill -9 -x %[3]s 2>/dev/null
      BOX_GATEWAY_TOKEN=$(cat %[7]s) nohup %[2]s --token "$(cat %[7]s)" >>%[4]s 2>&1 &
      sleep 2
    fi
  fi
  sleep %[8]d
done
rm -f %[9]s`,
		watcherMaxIterations, bin, base, logp, o.cfg.Port,
		tokenMissingSignature, tok, watcherSleepSeconds, watcherPIDPath)
}
