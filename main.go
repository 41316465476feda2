package main

import "github.com/kozaktomas/face-keeper/cmd"

func main() {
	cmd.Execute()
}
