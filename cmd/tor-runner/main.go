package main

import "github.com/oshokin/tor-expert-runner/cmd/tor-runner/cmd"

func main() {
	cmd.Execute()
}
