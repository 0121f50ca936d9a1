package main

import "docchat/cmd"

func main() {
	cmd.Execute()
}
