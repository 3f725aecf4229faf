package main

import "github.com/theirongolddev/agentcost/cmd"

func main() {
	cmd.Execute()
}
