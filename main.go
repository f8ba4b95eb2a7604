package main

import "github.com/chantharith-NY/Bank-Transcript-Scanner/cmd"

func main() {
	cmd.Execute()
}
