// Package main is the entry point for the pwc CLI client.
package main

import (
	"pricewatch/cmd/pwc/cmd"
)

func main() {
	cmd.Execute()
}
