package main

import "github.com/reunite/portal/cmd"

func main() {
	cmd.Execute()
}
