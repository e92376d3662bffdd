package main

import "github.com/oshokin/tor-expert-runner/cmd/tor-fetch/cmd"

func main() {
	cmd.Execute()
}
