package main

import (
	"fmt"

	"github.com/okjarvi/guishell/internal/backend"
)

type VerbsCmd struct{}

// Run lists the protocol verbs, one per line, so controller authors can see
// what a given build supports.
func (c *VerbsCmd) Run() error {
	for _, verb := range backend.Verbs() {
		fmt.Println(verb)
	}
	return nil
}
