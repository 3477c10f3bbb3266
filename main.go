package main

import "github.com/chxlky/trello-quickcard/cmd"

func main() {
	cmd.Execute()
}
