package main

import "github.com/release-tools/refwalk/cmd"

func main() {
	cmd.Execute()
}
