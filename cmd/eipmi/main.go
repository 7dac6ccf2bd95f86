// Command eipmi is a diagnostic tool for the IPMI-over-RMCP wire
// protocol: ASF presence pings, frame encoding, and frame decoding.
package main

import "github.com/olle/eipmi/cmd/eipmi/commands"

func main() {
	commands.Execute()
}
