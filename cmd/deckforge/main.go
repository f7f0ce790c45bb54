// Command deckforge generates slide decks from ideas, outlines or page
// descriptions.
package main

import (
	"os"

	"github.com/leapstack-labs/deckforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
