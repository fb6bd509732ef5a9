package main

import "github.com/nextlevelbuilder/preflight/cmd"

func main() {
	cmd.Execute()
}
