package main

import "github.com/mselser95/parlay-relay/cmd"

func main() {
	cmd.Execute()
}
