// Command netsim runs network simulations described by a configuration file.
package main

import (
	"github.com/sarchlab/netsim/netsim/cmd"
)

func main() {
	cmd.Execute()
}
