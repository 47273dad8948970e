package main

import "github.com/ShawnOwen/threadcal/cmd"

func main() {
	cmd.Execute()
}
