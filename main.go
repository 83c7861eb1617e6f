package main

import "gamezone/m/cmd"

func main() {
	cmd.Execute()
}
