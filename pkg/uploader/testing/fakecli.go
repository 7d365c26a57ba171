package testing

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// fakeDaemonScript is a minimal stand-in for the storage daemon CLI.
//
// Identifiers are digests of the added content, so repeated adds of identical
// bytes return identical CIDs and the determinism part of the gateway
// contract holds. Directory adds digest the sorted relative file listing, so
// the root CID does not depend on where the tree lives on disk. When the last
// argument does not name an existing path the content is read from stdin,
// matching the real CLI's inline add form.
const fakeDaemonScript = `#!/bin/sh
set -e
cmd="$1"
case "$cmd" in
id)
	echo '{"ID": "fake-daemon"}'
	;;
add)
	shift
	last=""
	for arg in "$@"; do last="$arg"; done
	if [ -d "$last" ]; then
		sum=$( (cd "$last" && find . -type f | LC_ALL=C sort | xargs -r sha256sum) | sha256sum | cut -d' ' -f1)
	elif [ -f "$last" ]; then
		sum=$(sha256sum < "$last" | cut -d' ' -f1)
	else
		sum=$(sha256sum | cut -d' ' -f1)
	fi
	printf 'bafyfake%.46s\n' "$sum"
	;;
*)
	echo "unknown command: $cmd" >&2
	exit 64
	;;
esac
`

// failingDaemonScript rejects every add the way a daemon without a repo does.
const failingDaemonScript = `#!/bin/sh
echo "Error: no running daemon and repo is locked" >&2
exit 1
`

// InstallFakeDaemonCLI writes a scripted daemon binary named "ipfs" into a
// temp dir, prepends that dir to PATH for the duration of the test, and
// returns the binary's path. Tests that need POSIX tooling are skipped where
// it is unavailable.
func InstallFakeDaemonCLI(t *testing.T) string {
	t.Helper()
	return installScript(t, fakeDaemonScript)
}

// InstallFailingDaemonCLI is InstallFakeDaemonCLI with a daemon that refuses
// every command.
func InstallFailingDaemonCLI(t *testing.T) string {
	t.Helper()
	return installScript(t, failingDaemonScript)
}

func installScript(t *testing.T, script string) string {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("scripted daemon needs a POSIX shell")
	}
	if _, err := exec.LookPath("sha256sum"); err != nil {
		t.Skip("scripted daemon needs sha256sum")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "ipfs")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to install scripted daemon: %v", err)
	}

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return path
}
