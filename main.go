// Command voyage-ingest parses a presidential yacht voyage document and
// projects it onto a Postgres database and a Google Sheet.
package main

import "github.com/sequoia-archive/voyage-ingest/cmd"

func main() {
	cmd.Execute()
}
