package main

import "github.com/parityarb/xvenue-arb/cmd"

func main() {
	cmd.Execute()
}
