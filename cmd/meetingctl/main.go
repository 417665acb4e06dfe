// Command meetingctl records, transcribes and summarizes meetings into a
// Markdown note vault.
package main

import (
	"os"

	"github.com/MrWong99/meetingctl/internal/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Main(version))
}
