/*
main.go - Application entry point

PURPOSE:
  Runs the ledger CLI. The default workflow is `server serve`, which opens
  the SQLite store and exposes the ledger over HTTP.

COMMANDS:
  serve                 Start the HTTP API (graceful shutdown on SIGINT/SIGTERM)
  migrate [--reset]     Create the schema, optionally wiping every row
  period create 2024-11 Open an accounting period
  period close 2024-11  Close an accounting period
  period list           List accounting periods

CONFIGURATION:
  See config/config.go. Flags override the config file, which overrides the
  embedded defaults; LEDGER_* environment variables override both files.

EXAMPLES:
  # Run with file database
  ./server serve --db ./data/ledger.db

  # Run with in-memory database on another port
  ./server serve --db ":memory:" --port 3000

  # Demo: throwaway store with scenario loaders, periods rolled over hourly
  LEDGER_SCHEDULER_ENABLED=true ./server serve --db ":memory:" --scenarios

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Automatic period rollover
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("ledger server version %s\n", version)
		os.Exit(0)
	}

	Execute()
}
