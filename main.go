package main

import (
	"github.com/0xERR0R/canarynet/cmd"
)

func main() {
	cmd.Execute()
}
