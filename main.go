package main

import "github.com/irfansh/bugtracker/cmd"

func main() {
	cmd.Execute()
}
