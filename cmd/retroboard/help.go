// ABOUTME: Help display for the retroboard CLI with grouped commands, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for config variable detection.
package main

import (
	"fmt"
	"io"
	"os"
)

// printHelp writes a formatted help message to w, including usage patterns,
// commands, examples, environment status, and a docs link.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "retroboard %s — collaborative retrospective board client\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  retroboard -board <id> <command> [args]")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  watch                          Join the board and tail live events")
	fmt.Fprintln(w, "  show                           Print the board and exit")
	fmt.Fprintln(w, "  add <column-id> <content>      Create a feedback card (append -anon for anonymous)")
	fmt.Fprintln(w, "  edit <card-id> <content>       Edit a card's text")
	fmt.Fprintln(w, "  move <card-id> <column-id>     Move a card to a column")
	fmt.Fprintln(w, "  delete <card-id>               Delete a card")
	fmt.Fprintln(w, "  stack <card-id> <onto-id>      Stack a card under another")
	fmt.Fprintln(w, "  unstack <card-id>              Detach a card from its parent")
	fmt.Fprintln(w, "  react <card-id>                Add a reaction")
	fmt.Fprintln(w, "  unreact <card-id>              Remove a reaction")
	fmt.Fprintln(w, "  rename <name>                  Rename the board (admin only)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -board <id>           Board ID to join (required)")
	fmt.Fprintln(w, "  -config <file>        Path to YAML config file (env vars override)")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  retroboard -board retro-42 watch")
	fmt.Fprintln(w, "  retroboard -board retro-42 add went-well \"shipping cadence\"")
	fmt.Fprintln(w, "  retroboard -board retro-42 stack card-7 card-3")
	fmt.Fprintln(w, "  retroboard -board retro-42 react card-3")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  RETRO_SERVER_URL      %s\n", envStatus("RETRO_SERVER_URL"))
	fmt.Fprintf(w, "  RETRO_USER_ID         %s\n", envStatus("RETRO_USER_ID"))
	fmt.Fprintf(w, "  RETRO_AUTH_TOKEN      %s\n", envStatus("RETRO_AUTH_TOKEN"))
	fmt.Fprintf(w, "  RETRO_ALIAS           %s\n", envStatus("RETRO_ALIAS"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  RETRO_SERVER_URL and RETRO_USER_ID are required.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Docs: https://github.com/2389-research/retroboard")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
