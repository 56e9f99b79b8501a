// Package main is the entry point for the lineups CLI, which ingests
// play-by-play event streams and reports lineup and on/off ratings.
package main

import "github.com/pable/go-lineup-metrics/cmd"

func main() {
	cmd.Execute()
}
