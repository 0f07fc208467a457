package main

import "github.com/tanq16/rawst/cmd"

func main() {
	cmd.Execute()
}
