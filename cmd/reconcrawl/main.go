// Command reconcrawl is the crawler's entrypoint; all logic lives in
// internal/cmd so it stays testable.
package main

import (
	"github.com/corvid-labs/reconcrawl/internal/cmd"
)

func main() {
	cmd.Execute()
}
