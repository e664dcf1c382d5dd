package main

import "ordertrack/cmd"

func main() {
	cmd.Execute()
}
