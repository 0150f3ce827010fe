package main

import "github.com/qrave1/ChatRoulette/cmd"

func main() {
	cmd.Execute()
}
