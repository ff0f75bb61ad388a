package main

import "glucoclock/cmd/glucoclock/cmd"

func main() {
	cmd.Execute()
}
